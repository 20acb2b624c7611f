// Package terminal is the line-oriented front end of the canteen client:
// one command per line, output written as plain text.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout"
	"github.com/angelmondragon/canteen-backend/internal/lifecycle"
	"github.com/angelmondragon/canteen-backend/internal/listing"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// API is the slice of the remote client the shell calls directly.
type API interface {
	Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error)
	ListProducts(ctx context.Context, filters types.ProductFilters) ([]types.Product, error)
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
}

type Params struct {
	API       API
	Cart      *cart.Store
	Checkout  checkout.Service
	Lifecycle *lifecycle.Controller
	Listing   *listing.Service
	Out       io.Writer
	Logger    *logger.Logger
}

type Shell struct {
	api       API
	cart      *cart.Store
	checkout  checkout.Service
	lifecycle *lifecycle.Controller
	listing   *listing.Service
	out       io.Writer
	logg      *logger.Logger

	role       enums.Role
	lastOrders []types.Order
}

func NewShell(p Params) (*Shell, error) {
	switch {
	case p.API == nil:
		return nil, fmt.Errorf("api client required")
	case p.Cart == nil:
		return nil, fmt.Errorf("cart store required")
	case p.Checkout == nil:
		return nil, fmt.Errorf("checkout service required")
	case p.Lifecycle == nil:
		return nil, fmt.Errorf("lifecycle controller required")
	case p.Listing == nil:
		return nil, fmt.Errorf("listing service required")
	case p.Out == nil:
		return nil, fmt.Errorf("output writer required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Shell{
		api:       p.API,
		cart:      p.Cart,
		checkout:  p.Checkout,
		lifecycle: p.Lifecycle,
		listing:   p.Listing,
		out:       p.Out,
		logg:      logg,
		role:      enums.RoleCustomer,
	}, nil
}

// Run reads commands until EOF, "quit" or ctx is done. Command failures are
// printed and do not stop the loop.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	s.cart.Load(ctx)

	scanner := bufio.NewScanner(in)
	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := s.Exec(ctx, line); err != nil {
				s.printError(err)
			}
		}
		s.prompt()
	}
	return scanner.Err()
}

// Exec runs a single command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		s.help()
		return nil
	case "login":
		return s.login(ctx, args)
	case "menu":
		return s.menu(ctx, args)
	case "add":
		return s.add(ctx, args)
	case "qty":
		return s.quantity(ctx, args)
	case "remove":
		return s.remove(ctx, args)
	case "cart":
		s.printCart()
		return nil
	case "clear":
		s.cart.Clear(ctx)
		fmt.Fprintln(s.out, "cart cleared")
		return nil
	case "checkout":
		return s.submit(ctx, args)
	case "orders":
		return s.orders(ctx, args)
	case "advance":
		return s.advance(ctx, args)
	case "finish":
		return s.finish(ctx, args)
	case "cancel":
		return s.cancel(ctx, args)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q, try help", cmd))
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("login <email> <password> [role]")
	}
	req := types.LoginRequest{Email: args[0], Password: args[1]}
	if len(args) > 2 {
		role, err := enums.ParseRole(strings.ToLower(args[2]))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		req.Role = &role
	}
	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return err
	}
	s.role = resp.User.Role
	s.lastOrders = nil
	fmt.Fprintf(s.out, "logged in as %s (%s)\n", resp.User.Name, resp.User.Role)
	return nil
}

func (s *Shell) menu(ctx context.Context, args []string) error {
	filters := types.ProductFilters{AvailableOnly: true}
	if len(args) > 0 {
		filters.Category = strings.ToLower(args[0])
	}
	products, err := s.api.ListProducts(ctx, filters)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(s.out, "nothing on the menu")
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tCATEGORY\tPRICE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2))
	}
	return tw.Flush()
}

// add <productId> [qty] [complement=qty,...]
func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("add <productId> [qty] [complement=qty,...]")
	}
	productID, err := parseProductID(args[0])
	if err != nil {
		return err
	}
	qty := 1
	rest := args[1:]
	if len(rest) > 0 {
		if n, convErr := strconv.Atoi(rest[0]); convErr == nil {
			qty = n
			rest = rest[1:]
		}
	}
	var complements []cart.Complement
	if len(rest) > 0 {
		complements, err = parseComplements(rest[0])
		if err != nil {
			return err
		}
	}

	product, err := s.api.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !product.Available {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not available today", product.Name))
	}
	if err := s.cart.AddItem(ctx, *product, qty, complements); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "added %s, cart subtotal %s\n", product.Name, s.cart.Subtotal().StringFixed(2))
	return nil
}

func (s *Shell) quantity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("qty <productId> <delta>")
	}
	productID, err := parseProductID(args[0])
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delta must be an integer")
	}
	s.cart.UpdateQuantity(ctx, productID, delta)
	s.printCart()
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("remove <productId>")
	}
	productID, err := parseProductID(args[0])
	if err != nil {
		return err
	}
	s.cart.RemoveItem(ctx, productID)
	s.printCart()
	return nil
}

func (s *Shell) submit(ctx context.Context, args []string) error {
	var notes *string
	if len(args) > 0 {
		joined := strings.Join(args, " ")
		notes = &joined
	}
	clientSubtotal := s.cart.Subtotal()
	order, err := s.checkout.Submit(ctx, s.cart, notes)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "order %s placed, total %s\n", order.ID, order.Total.StringFixed(2))
	if delta := checkout.Reprice(clientSubtotal, *order); delta.Changed {
		fmt.Fprintf(s.out, "note: the counter charged %s instead of %s\n", delta.Server.StringFixed(2), delta.Client.StringFixed(2))
	}
	return nil
}

// orders [status]. Customers see their two tabs, staff the full queue.
func (s *Shell) orders(ctx context.Context, args []string) error {
	if !s.role.IsStaff() {
		tabs, err := s.listing.Tabs(ctx, s.role)
		if err != nil {
			return err
		}
		s.lastOrders = append(append([]types.Order{}, tabs.InProgress...), tabs.Completed...)
		fmt.Fprintln(s.out, "in progress:")
		s.printOrders(tabs.InProgress, 0)
		fmt.Fprintln(s.out, "completed:")
		s.printOrders(tabs.Completed, len(tabs.InProgress))
		return nil
	}

	var filters types.OrderFilters
	if len(args) > 0 {
		status, err := enums.ParseOrderStatus(strings.ToLower(args[0]))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filters.Status = &status
	}
	list, err := s.listing.ListAll(ctx, s.role, filters)
	if err != nil {
		return err
	}
	s.lastOrders = list.Orders
	s.printOrders(list.Orders, 0)
	return nil
}

// advance covers the kitchen steps only. Finishing and cancelling go
// through finish and cancel, which is all the staff action list offers.
func (s *Shell) advance(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("advance <row|orderId> preparing|ready")
	}
	target, err := enums.ParseOrderStatus(strings.ToLower(args[1]))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if target.IsTerminal() || target == enums.OrderStatusPlaced {
		return usage("advance <row|orderId> preparing|ready, use finish or cancel to close an order")
	}
	order, err := s.resolveOrder(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := s.lifecycle.RequestTransitionWithRefresh(ctx, order, target, s.role)
	if err != nil {
		return err
	}
	s.replaceOrder(*updated)
	fmt.Fprintf(s.out, "order %s is now %s\n", shortID(updated.ID), updated.Status)
	return nil
}

func (s *Shell) finish(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("finish <row|orderId>")
	}
	order, err := s.resolveOrder(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := s.lifecycle.RequestTransitionWithRefresh(ctx, order, enums.OrderStatusCompleted, s.role)
	if err != nil {
		return err
	}
	s.replaceOrder(*updated)
	fmt.Fprintf(s.out, "order %s completed\n", shortID(updated.ID))
	return nil
}

func (s *Shell) cancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("cancel <row|orderId>")
	}
	order, err := s.resolveOrder(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := s.lifecycle.Cancel(ctx, order, s.role)
	if err != nil {
		return err
	}
	s.replaceOrder(*updated)
	fmt.Fprintf(s.out, "order %s cancelled\n", shortID(updated.ID))
	return nil
}

// resolveOrder accepts a 1-based row from the last listing or a full id.
func (s *Shell) resolveOrder(ctx context.Context, ref string) (types.Order, error) {
	if row, err := strconv.Atoi(ref); err == nil {
		if row < 1 || row > len(s.lastOrders) {
			return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "no such row, run orders first")
		}
		return s.lastOrders[row-1], nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return types.Order{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order reference")
	}
	order, err := s.listing.Get(ctx, id)
	if err != nil {
		return types.Order{}, err
	}
	return *order, nil
}

func (s *Shell) replaceOrder(order types.Order) {
	for i := range s.lastOrders {
		if s.lastOrders[i].ID == order.ID {
			s.lastOrders[i] = order
		}
	}
}

func (s *Shell) printCart() {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", s.cart.ItemCount(), s.cart.Subtotal().StringFixed(2))
	_ = tw.Flush()
}

func (s *Shell) printOrders(orders []types.Order, offset int) {
	if len(orders) == 0 {
		fmt.Fprintln(s.out, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for i, o := range orders {
		actions := ""
		if labels := actionLabels(lifecycle.StaffActions(s.role, o.Status)); len(labels) > 0 {
			actions = "[" + strings.Join(labels, "|") + "]"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\n", offset+i+1, shortID(o.ID), o.Status, o.Total.StringFixed(2), o.CreatedAt.Local().Format("15:04"), actions)
	}
	_ = tw.Flush()
}

// actionLabels names staff actions after the commands that apply them.
func actionLabels(actions []enums.OrderStatus) []string {
	labels := make([]string, 0, len(actions))
	for _, status := range actions {
		switch status {
		case enums.OrderStatusCompleted:
			labels = append(labels, "finish")
		case enums.OrderStatusCancelled:
			labels = append(labels, "cancel")
		}
	}
	return labels
}

func (s *Shell) printError(err error) {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeConflict:
			fmt.Fprintln(s.out, "error: the order changed on the counter, run orders to refresh")
			return
		case pkgerrors.CodeUnauthorized:
			fmt.Fprintln(s.out, "error: login first")
			return
		case pkgerrors.CodeNetwork:
			fmt.Fprintln(s.out, "error: canteen server unreachable, try again")
			return
		}
		fmt.Fprintf(s.out, "error: %s\n", typed.Message())
		return
	}
	fmt.Fprintf(s.out, "error: %v\n", err)
}

func (s *Shell) prompt() {
	fmt.Fprintf(s.out, "[%s | %d items] > ", s.role, s.cart.ItemCount())
}

func (s *Shell) help() {
	fmt.Fprint(s.out, `commands:
  login <email> <password> [role]
  menu [category]
  add <productId> [qty] [complement=qty,...]
  qty <productId> <delta>
  remove <productId>
  cart | clear
  checkout [notes]
  orders [status]
  advance <row|orderId> preparing|ready
  finish <row|orderId>
  cancel <row|orderId>
  quit
`)
}

func usage(text string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "usage: "+text)
}

func parseProductID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product id %q", raw))
	}
	return id, nil
}

// parseComplements reads "ketchup,maionese-caseira=2" against the counter's
// condiment list.
func parseComplements(raw string) ([]cart.Complement, error) {
	known := map[string]cart.Complement{}
	for _, c := range cart.DefaultComplements() {
		known[c.ID] = c
	}
	var out []cart.Complement
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, qtyRaw, hasQty := strings.Cut(part, "=")
		c, ok := known[strings.ToLower(id)]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown complement %q", id))
		}
		if hasQty {
			qty, err := strconv.Atoi(qtyRaw)
			if err != nil || qty <= 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity for %s", id))
			}
			c.Quantity = qty
		}
		out = append(out, c)
	}
	return out, nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
