package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/coursestore/internal/client/cart"
)

// Cart prints the cart and its total.
func (a *App) Cart(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if a.cart.Loading() {
		a.say("Loading...")
		return nil
	}
	items := a.cart.Items()
	if len(items) == 0 {
		a.say("Your cart is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tCOURSE\tTITLE\tPRICE")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.ID, it.CourseID, it.Course.Title, it.Course.Price.StringFixed(2))
	}
	_ = tw.Flush()
	a.say("Total: %s (%d items)", a.cart.Total().StringFixed(2), len(items))
	return nil
}

// Add puts a course into the cart.
func (a *App) Add(ctx context.Context, args []string) error {
	id, err := parseID(args, "add <course id>")
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	item, err := a.cart.AddItem(ctx, id)
	if err != nil {
		return a.fail(ctx, "Could not add the course to the cart", err)
	}
	a.say("Added %q to the cart.", item.Course.Title)
	return nil
}

// Remove deletes a cart line item by its item id.
func (a *App) Remove(ctx context.Context, args []string) error {
	id, err := parseID(args, "remove <item id>")
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.cart.RemoveItem(ctx, id); err != nil {
		// server failures are already published by the cart store.
		if errors.Is(err, cart.ErrItemNotFound) {
			return a.fail(ctx, "Could not remove the item", err)
		}
		return err
	}
	a.say("Removed.")
	return nil
}

// Clear empties the cart on the server and then locally.
func (a *App) Clear(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if err := a.api.ClearCart(ctx); err != nil {
		return a.fail(ctx, "Could not clear the cart", err)
	}
	a.cart.ClearCart()
	a.say("Cart cleared.")
	return nil
}

// Checkout buys everything in the cart, then empties the local cart and
// reloads the purchase list.
func (a *App) Checkout(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	if a.cart.Count() == 0 {
		a.say("Your cart is empty.")
		return nil
	}
	total := a.cart.Total()

	res, err := a.api.Checkout(ctx)
	if err != nil {
		return a.fail(ctx, "Checkout failed", err)
	}
	a.cart.ClearCart()
	a.cart.RefreshPurchases(ctx)

	a.notes.Info("Purchased %d course(s) for %s", res.CoursesCount, total.StringFixed(2))
	return nil
}

// Bought lists purchased courses.
func (a *App) Bought(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	purchases := a.cart.Purchases()
	if len(purchases) == 0 {
		a.say("You have not bought any courses yet.")
		return nil
	}
	for _, p := range purchases {
		title := fmt.Sprintf("course #%d", p.CourseID)
		if p.Course != nil {
			title = p.Course.Title
		}
		a.say("%d\t%s", p.CourseID, title)
	}
	return nil
}
