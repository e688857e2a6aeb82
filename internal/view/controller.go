// Package view holds the booking page's state machine, decoupled from any
// particular renderer. State moves along four independent axes: session
// (anonymous/authenticated), list (loading/loaded/error), form
// (closed/creating/editing), and the transient error banner.
package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cerita/nobat/internal/client"
	"github.com/cerita/nobat/internal/model"
	"github.com/cerita/nobat/internal/util"
)

// API is what the controller needs from the appointment client.
type API interface {
	ListTurns(ctx context.Context, cursor, direction string) (client.DayPage, error)
	CreateTurn(ctx context.Context, in client.TurnInput) (model.Turn, error)
	UpdateTurn(ctx context.Context, id string, in client.TurnInput) (model.Turn, error)
	DeleteTurn(ctx context.Context, id string) error
	SendCommentSMS(ctx context.Context, id string) error
	Login(ctx context.Context, userID string) (string, error)
}

// Draft is the create/edit form's field set.
type Draft struct {
	Phone       string
	Time        string
	Name        string
	Description string
}

// Controller drives the single booking page. Methods are safe to call from
// multiple goroutines; list responses that were overtaken by a newer list
// request are discarded instead of clobbering fresher state.
type Controller struct {
	api     API
	session *client.Session
	store   TokenStore

	mu          sync.Mutex
	token       string // "" = anonymous
	loginPrompt bool
	logoutArmed bool

	loading bool
	day     *model.DayContext
	turns   []model.Turn
	listSeq uint64

	formOpen bool
	selected *model.Turn
	draft    Draft

	errMsg string
}

func NewController(api API, session *client.Session, store TokenStore) *Controller {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Controller{
		api:     api,
		session: session,
		store:   store,
		draft:   emptyDraft(),
	}
}

// TimeSlots is the bookable grid: 09:00 through 21:45 in quarter hours.
func TimeSlots() []string {
	slots := make([]string, 0, 13*4)
	for hour := 9; hour <= 21; hour++ {
		for _, min := range []string{"00", "15", "30", "45"} {
			slots = append(slots, fmt.Sprintf("%02d:%s", hour, min))
		}
	}
	return slots
}

func emptyDraft() Draft {
	return Draft{Time: TimeSlots()[0]}
}

// Mount initializes the page. A non-empty tel deep link pre-fills the
// normalized phone and opens the creation form; the caller strips the query
// from the address so a refresh does not re-trigger it.
func (c *Controller) Mount(ctx context.Context, tel string) {
	c.mu.Lock()
	if tel != "" {
		c.draft.Phone = util.NormalizePhone(tel)
		c.formOpen = true
	}

	token, err := c.store.Load()
	if err != nil || token == "" {
		c.loginPrompt = true
		c.mu.Unlock()
		return
	}
	c.token = token
	c.session.Set(token)
	c.mu.Unlock()

	c.load(ctx, "", "")
}

// Login exchanges the typed operator ID for a session token, persists it,
// and loads today's list.
func (c *Controller) Login(ctx context.Context, userID string) {
	userID = strings.ToLower(strings.TrimSpace(userID))
	if userID == "" {
		return
	}

	token, err := c.api.Login(ctx, userID)
	if err != nil {
		c.mu.Lock()
		c.errMsg = messageOf(err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.token = token
	c.session.Set(token)
	c.loginPrompt = false
	_ = c.store.Save(token)
	c.mu.Unlock()

	c.load(ctx, "", "")
}

// Logout is two-step: the first call arms the confirmation and returns
// false, the second clears the session. DisarmLogout cancels an armed one.
func (c *Controller) Logout() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.logoutArmed {
		c.logoutArmed = true
		return false
	}
	c.logoutArmed = false
	c.token = ""
	c.session.Clear()
	_ = c.store.Clear()
	c.loginPrompt = true
	return true
}

func (c *Controller) DisarmLogout() {
	c.mu.Lock()
	c.logoutArmed = false
	c.mu.Unlock()
}

// Refresh reloads the currently displayed day.
func (c *Controller) Refresh(ctx context.Context) { c.load(ctx, c.cursor(), "") }

// NextDay and PrevDay navigate the day cursor; the response replaces the
// whole list and day context, never merges.
func (c *Controller) NextDay(ctx context.Context) { c.load(ctx, c.cursor(), "next") }
func (c *Controller) PrevDay(ctx context.Context) { c.load(ctx, c.cursor(), "prev") }

func (c *Controller) cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day != nil {
		return c.day.FaDate
	}
	return ""
}

// load fetches one day. Each request takes a sequence number; a response
// whose number is no longer the newest is dropped, so a slow list cannot
// overwrite the result of a later navigation.
func (c *Controller) load(ctx context.Context, cursor, direction string) {
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.loading = true
	c.mu.Unlock()

	page, err := c.api.ListTurns(ctx, cursor, direction)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.listSeq {
		return // overtaken; the newer request owns the loading flag
	}
	c.loading = false
	if err != nil {
		// keep the previous list on screen
		c.errMsg = messageOf(err)
		return
	}
	day := page.Date
	c.day = &day
	c.turns = page.Turns
	c.errMsg = ""
}

// SelectTurn opens the form in edit mode: the composite slot decomposes
// into the editable time of day, the date stays pinned to the current
// cursor.
func (c *Controller) SelectTurn(t model.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := t
	c.selected = &sel
	c.draft = Draft{
		Phone:       t.RefPhone,
		Time:        t.Slot.Time,
		Name:        t.RefName,
		Description: t.Description,
	}
	c.formOpen = true
}

func (c *Controller) OpenForm() {
	c.mu.Lock()
	c.formOpen = true
	c.mu.Unlock()
}

// CloseForm closes without submitting. After an edit selection, or with
// force, the draft resets to empty with the first slot; a plain close keeps
// the draft so a similar appointment can be entered right away.
func (c *Controller) CloseForm(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFormLocked(force)
}

func (c *Controller) closeFormLocked(force bool) {
	if c.selected != nil || force {
		c.draft = emptyDraft()
	}
	c.selected = nil
	c.formOpen = false
}

func (c *Controller) input() client.TurnInput {
	return client.TurnInput{
		RefName:     strings.TrimSpace(c.draft.Name),
		RefPhone:    util.NormalizePhone(c.draft.Phone),
		User:        lastN(c.token, 4),
		Description: strings.TrimSpace(c.draft.Description),
		Slot:        model.Slot{Date: c.cursorLocked(), Time: c.draft.Time},
	}
}

func (c *Controller) cursorLocked() string {
	if c.day != nil {
		return c.day.FaDate
	}
	return model.TodayCursor()
}

// SubmitCreate books the drafted slot. With keepOpen the form stays open
// and keeps its values (the "book another like this" flow). A failure keeps
// the form open with the draft untouched so the user can correct it.
func (c *Controller) SubmitCreate(ctx context.Context, keepOpen bool) {
	c.mu.Lock()
	in := c.input()
	cursor := c.cursorLocked()
	c.loading = true
	c.mu.Unlock()

	if _, err := c.api.CreateTurn(ctx, in); err != nil {
		c.mu.Lock()
		c.loading = false
		c.errMsg = messageOf(err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if !keepOpen {
		c.closeFormLocked(true)
	}
	c.mu.Unlock()

	c.load(ctx, cursor, "")
}

// SubmitEdit replaces the selected turn with the draft.
func (c *Controller) SubmitEdit(ctx context.Context) {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return
	}
	id := c.selected.ID
	in := c.input()
	cursor := c.cursorLocked()
	c.loading = true
	c.mu.Unlock()

	if _, err := c.api.UpdateTurn(ctx, id, in); err != nil {
		c.mu.Lock()
		c.loading = false
		c.errMsg = messageOf(err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.closeFormLocked(true)
	c.mu.Unlock()

	c.load(ctx, cursor, "")
}

// Delete removes the selected turn.
func (c *Controller) Delete(ctx context.Context) {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return
	}
	id := c.selected.ID
	cursor := c.cursorLocked()
	c.loading = true
	c.mu.Unlock()

	if err := c.api.DeleteTurn(ctx, id); err != nil {
		c.mu.Lock()
		c.loading = false
		c.errMsg = messageOf(err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.closeFormLocked(true)
	c.mu.Unlock()

	c.load(ctx, cursor, "")
}

// Notify triggers the comment-survey SMS for a turn, then re-lists so the
// status flag change becomes visible.
func (c *Controller) Notify(ctx context.Context, t model.Turn) {
	c.mu.Lock()
	cursor := c.cursorLocked()
	c.loading = true
	c.mu.Unlock()

	if err := c.api.SendCommentSMS(ctx, t.ID); err != nil {
		c.mu.Lock()
		c.loading = false
		c.errMsg = messageOf(err)
		c.mu.Unlock()
		return
	}

	c.load(ctx, cursor, "")
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

// ---- draft edits (bound to the form fields) ----

func (c *Controller) SetDraftPhone(v string) { c.setDraft(func(d *Draft) { d.Phone = v }) }
func (c *Controller) SetDraftTime(v string)  { c.setDraft(func(d *Draft) { d.Time = v }) }
func (c *Controller) SetDraftName(v string)  { c.setDraft(func(d *Draft) { d.Name = v }) }
func (c *Controller) SetDraftDescription(v string) {
	c.setDraft(func(d *Draft) { d.Description = v })
}

func (c *Controller) setDraft(fn func(*Draft)) {
	c.mu.Lock()
	fn(&c.draft)
	c.mu.Unlock()
}

// ---- snapshot accessors ----

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) LoginPromptShown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginPrompt
}

func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

func (c *Controller) Day() *model.DayContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day == nil {
		return nil
	}
	day := *c.day
	return &day
}

func (c *Controller) Turns() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Controller) FormOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formOpen
}

func (c *Controller) Selected() *model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	sel := *c.selected
	return &sel
}

func (c *Controller) CurrentDraft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// messageOf prefers the server's own validation text over transport noise.
func messageOf(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
