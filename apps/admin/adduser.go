package main

import (
	"context"
	"time"

	"github.com/oraclelc/backend/core"
	"github.com/oraclelc/backend/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.SetActive(true)
	usr.SetApproved(true)
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}

// approveStudent flags a pending student account as approved.
func (cli *commandLine) approveStudent(id string) error {
	ctx := context.Background()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		return err
	}
	if !usr.IsStudent() {
		return user.ErrNotStudent
	}
	usr.SetApproved(true)
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
