package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/user"
)

// addUser updates or creates an active, verified user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin, isTeacher bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if name = core.CleanString(name); name == "" {
		name = uname
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}
	now := time.Now().UTC()
	isNew := err != nil
	if isNew {
		usr = user.User{Username: uname, Roles: []string{user.RoleStudent}, CreatedAt: now}
	}

	usr.Name = name
	usr.Email = email
	usr.IsActive = true
	usr.IsVerified = true
	usr.UpdatedAt = now
	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case isTeacher && !usr.IsTeacher():
		usr.Roles = append(usr.Roles, user.RoleTeacher)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
