package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopcore/cart-service/internal/logging"
	"github.com/shopcore/cart-service/internal/models"
	"github.com/shopcore/cart-service/internal/service"
	"github.com/shopcore/cart-service/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetID(c echo.Context) (string, error) {
	v := c.Get("user_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("unauthorized")
	}
	return s, nil
}

// errJSON maps the service error taxonomy onto HTTP responses. Internal and
// transaction failures stay opaque.
func errJSON(c echo.Context, err error) error {
	var unknown *service.UnknownProductsError
	switch {
	case errors.As(err, &unknown):
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{
			Error:   "some items are not available in the product catalog",
			Missing: unknown.Missing,
		})
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "cart is empty"})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, transport.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, transport.ErrorResponse{Error: "payment declined"})
	case errors.Is(err, service.ErrDependencyUnavailable):
		return c.JSON(http.StatusServiceUnavailable, transport.ErrorResponse{Error: "dependency unavailable, try again later"})
	default:
		return c.JSON(http.StatusInternalServerError, transport.ErrorResponse{Error: "internal error"})
	}
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("get_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	snap, err := h.Svc.GetCart(ctx, ownerID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return errJSON(c, err)
	}

	return c.JSON(http.StatusOK, snap)
}

func (h *CartHTTP) ReplaceCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.replace")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("replace_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.ReplaceCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("replace_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, p := range req.Items {
		items = append(items, p.Model())
	}

	snap, err := h.Svc.ReplaceCart(ctx, ownerID, req.Currency, items)
	if err != nil {
		l.Warn("replace_cart_error", "error", err)
		return errJSON(c, err)
	}

	l.Info("cart replaced", "items", len(snap.Items), "total_minor", snap.TotalMinor)
	return c.JSON(http.StatusOK, snap)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("add_item_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_item_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	snap, err := h.Svc.AddItem(ctx, ownerID, req.Model(), req.Merge)
	if err != nil {
		l.Warn("add_item_error", "error", err)
		return errJSON(c, err)
	}

	l.Info("item added", "item_id", req.ItemID, "merge", req.Merge)
	return c.JSON(http.StatusCreated, snap)
}

func (h *CartHTTP) SetItemQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("set_quantity_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	itemID := c.Param("id")

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		l.Warn("set_quantity_error", "status", 400)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "integer quantity is required"})
	}

	if err := h.Svc.SetItemQuantity(ctx, ownerID, itemID, *req.Quantity); err != nil {
		l.Warn("set_quantity_error", "item_id", itemID, "error", err)
		return errJSON(c, err)
	}

	l.Info("quantity set", "item_id", itemID, "quantity", *req.Quantity)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("remove_item_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	itemID := c.Param("id")
	if err := h.Svc.RemoveItem(ctx, ownerID, itemID); err != nil {
		l.Error("remove_item_error", "item_id", itemID, "error", err)
		return errJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *CartHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("delete_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.DeleteCart(ctx, ownerID); err != nil {
		l.Warn("delete_cart_error", "error", err)
		return errJSON(c, err)
	}

	l.Info("cart deleted")
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	ownerID, err := h.GetID(c)
	if err != nil {
		l.Error("checkout_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	result, err := h.Svc.Checkout(ctx, ownerID, req.Address)
	if err != nil {
		l.Warn("checkout_error", "error", err)
		return errJSON(c, err)
	}

	l.Info("checkout succeeded", "order_id", result.OrderID, "total_minor", result.TotalMinor)
	return c.JSON(http.StatusOK, result)
}
