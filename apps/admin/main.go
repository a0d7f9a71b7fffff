package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	logsvc "github.com/udemo/academy/services/logger"
	"github.com/udemo/academy/storage/database"
	sqlxrepos "github.com/udemo/academy/storage/database/sqlx"
)

func main() {
	conf := core.Conf
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	catSvc := category.NewService(sqlxrepos.NewCategoryRepository(db))
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		cats:    catSvc,
		courses: course.NewService(sqlxrepos.NewCourseRepository(db), catSvc, nil),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
