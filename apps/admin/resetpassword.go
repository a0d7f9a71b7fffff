package main

import (
	"context"
	"fmt"
	"time"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/user"
)

// resetPassword sets a new password and reactivates the account; an operator reset also counts as email verification.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.IsActive = true
	usr.IsVerified = true
	usr.UpdatedAt = time.Now().UTC()
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Printf("password reset for %s (%s)\n", usr.Username, usr.Email)
	return nil
}
