package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/coursestore/internal/client/guard"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Register prompts for a username, email and password and creates the
// account. It does not log in.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	u, err := a.account.Register(ctx, models.Registration{Username: username, Email: email, Password: password})
	if err != nil {
		return a.fail(ctx, "Registration failed", err)
	}
	a.say("Account %q created, you can log in now.", u.Username)
	return nil
}

// Login prompts for credentials and logs in. On success the cart is
// hydrated for the new user before Login returns.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, models.Credentials{Username: username, Password: password}); err != nil {
		return a.fail(ctx, "Login failed", err)
	}
	a.say("Welcome, %s!", a.session.User().Username)
	return nil
}

// Logout ends the session. The local session is cleared even if the
// server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return a.fail(ctx, "Logout incomplete, local session cleared", err)
	}
	a.say("Logged out.")
	return nil
}

// WhoAmI waits for the session to resolve and prints the current user.
func (a *App) WhoAmI(ctx context.Context) error {
	select {
	case <-a.session.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	u := a.session.User()
	if u == nil {
		a.say("Not logged in.")
		return nil
	}
	a.say("ID: %d", u.ID)
	a.say("Username: %s", u.Username)
	a.say("Email: %s", u.Email)
	if u.AvatarURL != nil {
		a.say("Avatar: %s", *u.AvatarURL)
	}
	return nil
}

// Profile shows the current user and lets them change username, email,
// avatar and password. Empty answers keep the current value.
func (a *App) Profile(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	u := a.session.User()
	a.say("ID: %d", u.ID)

	var patch models.ProfileUpdate
	username, err := GetTextOr(a.reader, "Username", u.Username, a.out)
	if err != nil {
		return err
	}
	if username != u.Username {
		patch.Username = &username
	}
	email, err := GetTextOr(a.reader, "Email", u.Email, a.out)
	if err != nil {
		return err
	}
	if email != u.Email {
		patch.Email = &email
	}
	avatar := ""
	if u.AvatarURL != nil {
		avatar = *u.AvatarURL
	}
	newAvatar, err := GetTextOr(a.reader, "Avatar URL", avatar, a.out)
	if err != nil {
		return err
	}
	if newAvatar != avatar {
		patch.AvatarURL = &newAvatar
	}
	change, err := Confirm(a.reader, "Change password?", a.out)
	if err != nil {
		return err
	}
	if change {
		pw, err := getPassword(a.reader, a.out)
		if err != nil {
			return err
		}
		patch.Password = &pw
	}

	if patch.IsEmpty() {
		a.say("Nothing to change.")
		return nil
	}
	if _, err := a.account.UpdateProfile(ctx, patch); err != nil {
		return a.fail(ctx, "Saving profile failed", err)
	}
	a.say("Profile saved.")
	return nil
}

// requireLogin runs the route guard. An anonymous user is taken through the
// login prompt; protected output is never printed before the session has
// resolved.
func (a *App) requireLogin(ctx context.Context) error {
	err := guard.Require(ctx, a.session)
	if !errors.Is(err, guard.ErrLoginRequired) {
		return err
	}
	a.say("Please log in first.")
	if err := a.Login(ctx); err != nil {
		return err
	}
	return nil
}
