package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kavyan/clipvault/internal/model"
	q "github.com/kavyan/clipvault/internal/queue"
	"github.com/kavyan/clipvault/internal/repository"
	"github.com/kavyan/clipvault/internal/service"
)

// AdminHandler bundles the operator endpoints: access grants, user
// removal, catalog ingest and service stats.
type AdminHandler struct {
	Users     *repository.UserRepo
	Catalog   *repository.CatalogRepo
	History   *repository.HistoryRepo
	Ledger    *service.AccessLedger
	Publisher service.Publisher
}

func NewAdminHandler(u *repository.UserRepo, cat *repository.CatalogRepo, hist *repository.HistoryRepo,
	ledger *service.AccessLedger, pub service.Publisher) *AdminHandler {
	return &AdminHandler{Users: u, Catalog: cat, History: hist, Ledger: ledger, Publisher: pub}
}

// ----- DTOs -----

type premiumReq struct {
	Days   int  `json:"days"`
	Extend bool `json:"extend"` // stack onto a running grant instead of replacing it
}

type tokenGrantReq struct {
	Duration string `json:"duration"` // Go duration string, e.g. "12h"
}

type itemReq struct {
	ContentHash string `json:"content_hash"`
	Handle      string `json:"handle"`
	Category    string `json:"category"`
}

type handleReq struct {
	Handle string `json:"handle"`
}

type blockReq struct {
	Duration string `json:"duration"` // optional; empty means block until unblocked
}

// GrantPremium handles POST /v1/admin/users/:id/premium.  With
// extend=false the grant replaces whatever was there (new
// subscription); with extend=true it stacks onto a still-running one.
func (h *AdminHandler) GrantPremium(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req premiumReq
	if err := c.Bind(&req); err != nil || req.Days <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}

	var exp time.Time
	kind := q.KindPremiumGranted
	if req.Extend {
		kind = q.KindPremiumExtended
		exp, err = h.Ledger.GrantPremiumExtend(ctx, id, req.Days)
	} else {
		exp, err = h.Ledger.GrantPremium(ctx, id, req.Days)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}

	h.publish(ctx, kind, id, exp,
		fmt.Sprintf("Premium active until %s. Enjoy!", exp.UTC().Format(time.RFC822)))
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "premium_until": exp.UTC()})
}

// RevokePremium handles DELETE /v1/admin/users/:id/premium.
func (h *AdminHandler) RevokePremium(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}
	if err := h.Ledger.RevokePremium(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}

	h.publish(ctx, q.KindPremiumRevoked, id, time.Time{}, "Your premium plan has ended.")
	return c.NoContent(http.StatusNoContent)
}

// GrantToken handles POST /v1/admin/users/:id/token.  Used for manual
// compensation grants (e.g. after a botched ad-watch flow).
func (h *AdminHandler) GrantToken(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req tokenGrantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil || d <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration must be a positive Go duration"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}
	exp, err := h.Ledger.GrantTokenAccess(ctx, id, d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}

	h.publish(ctx, q.KindTokenGranted, id, exp,
		fmt.Sprintf("Access unlocked until %s.", exp.UTC().Format(time.RFC822)))
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "access_until": exp.UTC()})
}

// Verify handles POST /v1/admin/users/:id/verify, confirming a
// completed shortlink verification on the user's behalf.
func (h *AdminHandler) Verify(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}
	until, err := h.Ledger.MarkVerified(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "verified_until": until.UTC()})
}

// BlockUser handles POST /v1/admin/users/:id/block.  Without a
// duration the block holds until an operator lifts it; with one it
// lapses on its own.  Grants and counters stay so an unblock restores
// the user's previous standing.
func (h *AdminHandler) BlockUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req blockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}

	if req.Duration == "" {
		if err := h.Ledger.Block(ctx, id); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "block failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "blocked": true})
	}

	d, err := time.ParseDuration(req.Duration)
	if err != nil || d <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration must be a positive Go duration"})
	}
	until, err := h.Ledger.BlockFor(ctx, id, d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "block failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "blocked_until": until.UTC()})
}

// UnblockUser handles DELETE /v1/admin/users/:id/block, lifting both
// the operator block and any temporary block.
func (h *AdminHandler) UnblockUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Get(ctx, id); err != nil {
		return userLookupError(c, err)
	}
	if err := h.Ledger.Unblock(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unblock failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// BlockedUsers handles GET /v1/admin/users/blocked.
func (h *AdminHandler) BlockedUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.BlockedUsers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		entry := echo.Map{"user_id": u.ID, "name": u.Name}
		if u.BlockedUntil != nil {
			entry["blocked_until"] = u.BlockedUntil.UTC()
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{"blocked": out})
}

// DeleteUser handles DELETE /v1/admin/users/:id.  The durable row and
// the user's Redis history go together; leaving the seen set behind
// would haunt the id if it ever re-registers.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return userLookupError(c, err)
	}
	if err := h.History.Purge(ctx, id); err != nil {
		log.Printf("admin: purge history for user %d: %v", id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddItem handles POST /v1/admin/items, registering new content.
func (h *AdminHandler) AddItem(c echo.Context) error {
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ContentHash = strings.TrimSpace(req.ContentHash)
	req.Handle = strings.TrimSpace(req.Handle)
	if req.ContentHash == "" || req.Handle == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content_hash/handle required"})
	}
	if req.Category == "" {
		req.Category = model.CategoryAll
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Catalog.Add(ctx, model.CatalogItem{
		ContentHash: req.ContentHash,
		Handle:      req.Handle,
		Category:    req.Category,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "item already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create item failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"content_hash": req.ContentHash})
}

// UpdateHandle handles PUT /v1/admin/items/:hash/handle.  Storage
// handles rotate when media is re-uploaded; the content hash and all
// accumulated votes stay.
func (h *AdminHandler) UpdateHandle(c echo.Context) error {
	hash := c.Param("hash")
	var req handleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Handle) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "handle required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Catalog.UpdateHandle(ctx, hash, strings.TrimSpace(req.Handle))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /v1/stats.  It sits behind the response cache so
// dashboard polling does not turn into COUNT(*) load.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	premium, err := h.Users.PremiumCount(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items, err := h.Catalog.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":         users,
		"premium_users": premium,
		"items":         items,
	})
}

func (h *AdminHandler) publish(ctx context.Context, kind string, userID int64, exp time.Time, text string) {
	n := q.Notification{Kind: kind, UserID: userID, Text: text}
	if !exp.IsZero() {
		n.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	if err := h.Publisher.Publish(ctx, n); err != nil {
		log.Printf("admin: publish %s for user %d: %v", kind, userID, err)
	}
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func userLookupError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}
