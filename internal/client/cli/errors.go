package cli

import (
	"errors"

	"github.com/dmitrijs2005/coursestore/internal/client/api"
	"github.com/dmitrijs2005/coursestore/internal/client/cart"
	"github.com/dmitrijs2005/coursestore/internal/client/guard"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

var errUsage = errors.New("usage")

// describe turns an error into a line for the user.
func describe(err error) string {
	var se *api.StatusError
	switch {
	case errors.Is(err, api.ErrUnavailable):
		return "server is unavailable, try again later"
	case errors.Is(err, guard.ErrLoginRequired):
		return "please log in first"
	case errors.Is(err, cart.ErrAnonymous):
		return "please log in to use the cart"
	case errors.Is(err, cart.ErrAlreadyInCart):
		return "this course is already in your cart"
	case errors.Is(err, cart.ErrAlreadyPurchased):
		return "you already own this course"
	case errors.Is(err, cart.ErrItemNotFound):
		return "no such item in your cart"
	case errors.As(err, &se) && se.Detail != "":
		return se.Detail
	case errors.Is(err, api.ErrUnauthorized):
		return "not authorized"
	case errors.Is(err, api.ErrNotFound):
		return "not found"
	case errors.Is(err, models.ErrValidation):
		return err.Error()
	default:
		return err.Error()
	}
}
