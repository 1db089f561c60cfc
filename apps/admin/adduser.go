package main

import (
	"context"
	"time"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
	"github.com/aulanet/campus/core/user"
)

// addUser creates or updates a staff account. Students register through the
// public form and are never created here.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	r, err := authz.ParseRole(role)
	if err != nil {
		return err
	}
	if r == authz.RoleStudent {
		return errHelp
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.Role = r
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
