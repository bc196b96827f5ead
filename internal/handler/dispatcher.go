package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/kavyan/clipvault/internal/model"
	"github.com/kavyan/clipvault/internal/player"
	"github.com/kavyan/clipvault/internal/service"
	"github.com/kavyan/clipvault/internal/transport"
)

// Dispatcher routes normalized inbound events (commands and button
// callbacks) to the engine. Expected denials — no access, quota spent,
// empty trail — are rendered to the user as chat replies and never
// propagate as errors; only store and transport failures bubble up.
type Dispatcher struct {
	users      player.UserStore
	manager    *player.Manager
	selector   *service.Selector
	reactions  *service.Reactions
	referral   *service.Referral
	ledger     *service.AccessLedger
	quota      *service.Quota
	catalog    service.CatalogStore
	bridge     transport.Transport
	tokenGrant time.Duration
}

func NewDispatcher(users player.UserStore, manager *player.Manager, selector *service.Selector,
	reactions *service.Reactions, referral *service.Referral, ledger *service.AccessLedger,
	quota *service.Quota, catalog service.CatalogStore, bridge transport.Transport,
	tokenGrant time.Duration) *Dispatcher {
	return &Dispatcher{
		users:      users,
		manager:    manager,
		selector:   selector,
		reactions:  reactions,
		referral:   referral,
		ledger:     ledger,
		quota:      quota,
		catalog:    catalog,
		bridge:     bridge,
		tokenGrant: tokenGrant,
	}
}

// Dispatch handles one inbound event. Blocked users are turned away
// here, before any command runs: the block gates every entry point,
// not just delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) error {
	u, err := d.users.Ensure(ctx, ev.UserID, ev.UserName)
	if err != nil {
		return err
	}
	blocked, err := d.ledger.IsBlocked(ctx, u)
	if err != nil {
		return err
	}
	if blocked {
		return d.notify(ctx, ev.UserID, "Your account is blocked. Contact support if you think this is a mistake.")
	}
	switch ev.Name {
	case "start":
		return d.handleStart(ctx, ev)
	case "player", "getvideo":
		_, err := d.manager.Open(ctx, ev.UserID, ev.UserName, ev.ChatID)
		return d.finish(ctx, ev, err)
	case "next":
		_, err := d.manager.Next(ctx, ev.UserID)
		return d.finish(ctx, ev, err)
	case "prev":
		_, err := d.manager.Previous(ctx, ev.UserID)
		return d.finish(ctx, ev, err)
	case "close":
		d.manager.Close(ctx, ev.UserID)
		return nil
	case "like":
		return d.handleReact(ctx, ev, service.ReactionLike)
	case "dislike":
		return d.handleReact(ctx, ev, service.ReactionDislike)
	case "bookmark":
		return d.handleBookmark(ctx, ev)
	case "bookmarks":
		return d.handleBookmarks(ctx, ev)
	case "category":
		return d.handleCategory(ctx, ev)
	case "reset":
		if err := d.selector.Reset(ctx, ev.UserID); err != nil {
			return err
		}
		return d.notify(ctx, ev.UserID, "History cleared. Fresh picks from here on.")
	case "status":
		return d.handleStatus(ctx, ev)
	case "verified":
		_, err := d.ledger.MarkVerified(ctx, ev.UserID)
		if err != nil {
			return err
		}
		return d.notify(ctx, ev.UserID, "Verification confirmed. Your daily limit is raised for a while.")
	case "watchad":
		exp, err := d.ledger.GrantTokenAccess(ctx, ev.UserID, d.tokenGrant)
		if err != nil {
			return err
		}
		return d.notify(ctx, ev.UserID,
			fmt.Sprintf("Thanks for watching! Access unlocked until %s.", exp.UTC().Format(time.RFC822)))
	default:
		return d.notify(ctx, ev.UserID, "Unknown command. Try /player to start watching.")
	}
}

// handleStart greets the user (already registered by Dispatch) and,
// when the start argument carries a referral token ("ref_<id>"), pays
// out the referral. Referral denials are not the newcomer's fault and
// degrade to a plain welcome.
func (d *Dispatcher) handleStart(ctx context.Context, ev model.Event) error {
	if strings.HasPrefix(ev.Arg, "ref_") {
		referrerID, err := strconv.ParseInt(strings.TrimPrefix(ev.Arg, "ref_"), 10, 64)
		if err == nil {
			switch err := d.referral.Grant(ctx, referrerID, ev.UserID); {
			case err == nil:
				return d.notify(ctx, ev.UserID, "Welcome! Your friend's invite unlocked free access. Send /player to start.")
			case errors.Is(err, service.ErrSelfReferral), errors.Is(err, service.ErrAlreadyRedeemed):
				// fall through to the plain welcome
			default:
				return err
			}
		}
	}
	return d.notify(ctx, ev.UserID, "Welcome! Send /player to start watching.")
}

func (d *Dispatcher) handleReact(ctx context.Context, ev model.Event, kind service.ReactionKind) error {
	hash := d.targetHash(ev)
	if hash == "" {
		return d.notify(ctx, ev.UserID, "Open the player first.")
	}
	if err := d.reactions.React(ctx, ev.UserID, hash, kind); err != nil {
		return err
	}
	// Re-read the item so the player shows the updated percentage.
	item, err := d.catalog.Get(ctx, hash)
	if err != nil {
		log.Printf("dispatch: reload item %s after vote: %v", hash, err)
		return nil
	}
	return d.manager.Refresh(ctx, ev.UserID, item)
}

func (d *Dispatcher) handleBookmark(ctx context.Context, ev model.Event) error {
	hash := d.targetHash(ev)
	if hash == "" {
		return d.notify(ctx, ev.UserID, "Open the player first.")
	}
	if err := d.reactions.Bookmark(ctx, ev.UserID, hash); err != nil {
		return err
	}
	return d.notify(ctx, ev.UserID, "Saved to your bookmarks.")
}

func (d *Dispatcher) handleBookmarks(ctx context.Context, ev model.Event) error {
	hashes, err := d.reactions.Bookmarks(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return d.notify(ctx, ev.UserID, "No bookmarks yet. Tap the bookmark button on a video you like.")
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Your bookmarks (%d):\n", len(hashes)))
	for i, h := range hashes {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, h))
	}
	return d.notify(ctx, ev.UserID, b.String())
}

func (d *Dispatcher) handleCategory(ctx context.Context, ev model.Event) error {
	category := strings.TrimSpace(ev.Arg)
	if category == "" {
		category = model.CategoryAll
	}
	if err := d.manager.ChangeCategory(ctx, ev.UserID, category); err != nil {
		return err
	}
	return d.notify(ctx, ev.UserID, fmt.Sprintf("Category set to %q.", category))
}

// handleStatus renders the user's standing: tier, today's usage and
// the end of the current access grant.
func (d *Dispatcher) handleStatus(ctx context.Context, ev model.Event) error {
	u, err := d.users.Ensure(ctx, ev.UserID, ev.UserName)
	if err != nil {
		return err
	}
	tier := d.ledger.Tier(u)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Tier: %s\n", tier))
	b.WriteString(fmt.Sprintf("Today: %d of %d videos\n", d.quota.Used(u), d.quota.Ceiling(tier)))
	if exp := d.ledger.AccessExpiry(u); exp != nil {
		b.WriteString(fmt.Sprintf("Access until: %s\n", exp.UTC().Format(time.RFC822)))
	} else {
		b.WriteString("Access: none. Watch an ad, invite a friend or go premium.\n")
	}
	if u.ReferralCount > 0 {
		b.WriteString(fmt.Sprintf("Friends invited: %d\n", u.ReferralCount))
	}
	return d.notify(ctx, ev.UserID, b.String())
}

// targetHash resolves which item a reaction refers to: the callback
// argument when present, otherwise the item in the active player.
func (d *Dispatcher) targetHash(ev model.Event) string {
	if ev.Arg != "" {
		return ev.Arg
	}
	if s := d.manager.Session(ev.UserID); s != nil {
		return s.Current.ContentHash
	}
	return ""
}

// finish translates expected engine denials into user-facing replies.
// Anything else is a real failure and is returned to the caller.
func (d *Dispatcher) finish(ctx context.Context, ev model.Event, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNoAccess):
		return d.notify(ctx, ev.UserID, "You need access first: watch an ad, invite a friend or go premium.")
	case errors.Is(err, service.ErrQuotaExceeded):
		return d.notify(ctx, ev.UserID, "You've reached today's limit. Come back tomorrow or upgrade for more.")
	case errors.Is(err, service.ErrNoContent):
		return d.notify(ctx, ev.UserID, "Nothing to watch yet. Check back soon.")
	case errors.Is(err, service.ErrNoPrevious):
		return d.notify(ctx, ev.UserID, "Nothing to go back to.")
	case errors.Is(err, player.ErrNoSession):
		return d.notify(ctx, ev.UserID, "No player open. Send /player to start.")
	case errors.Is(err, player.ErrTransport):
		return d.notify(ctx, ev.UserID, "Delivery hiccup, please try again.")
	default:
		return err
	}
}

func (d *Dispatcher) notify(ctx context.Context, userID int64, text string) error {
	if err := d.bridge.Notify(ctx, userID, text); err != nil {
		log.Printf("dispatch: notify user %d: %v", userID, err)
	}
	return nil
}
