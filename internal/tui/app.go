// Package tui is the terminal client: a chat list page and a chat room page
// kept live by the sync engine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/status"
	intsync "github.com/matheus3301/huddle/internal/sync"
	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui/keys"
	"github.com/matheus3301/huddle/internal/tui/ui"
	"github.com/matheus3301/huddle/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageChats = "chats"
	pageRoom  = "room"
	pageHelp  = "help"
)

// Options configures the TUI.
type Options struct {
	SessionName string
	UserID      string
	Logger      *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	layout   *tview.Flex
	pages    *ui.Pages
	crumbs   *ui.Crumbs
	menu     *ui.Menu
	info     *ui.SessionInfo
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	chatList *views.ChatList
	room     *views.ChatRoom
	help     *views.HelpView
	registry *keys.Registry

	client *client.Client
	engine *intsync.Engine
	bus    *bus.Bus
	logger *zap.Logger
	feed   *feedHealth

	sessionName string
	userID      string

	// Owned by the UI goroutine.
	listView   *intsync.ChatListView
	roomView   *intsync.ChatRoomView
	roomCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application over a connected daemon client.
func NewApp(c *client.Client, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()
	b := bus.New()

	a := &App{
		app:         tview.NewApplication(),
		theme:       theme,
		pages:       ui.NewPages(),
		crumbs:      ui.NewCrumbs(theme),
		menu:        ui.NewMenu(theme),
		info:        ui.NewSessionInfo(theme),
		flash:       ui.NewFlashModel(),
		flashBar:    ui.NewFlashBar(theme),
		prompt:      ui.NewPrompt(theme),
		chatList:    views.NewChatList(theme),
		room:        views.NewChatRoom(theme, opts.UserID),
		help:        views.NewHelpView(theme),
		registry:    keys.NewRegistry(),
		client:      c,
		bus:         b,
		logger:      logger,
		feed:        newFeedHealth(),
		sessionName: opts.SessionName,
		userID:      opts.UserID,
		ctx:         ctx,
		cancel:      cancel,
	}
	a.engine = intsync.NewEngine(c, c, intsync.Options{Bus: b, Logger: logger.Named("sync")})

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Name: "quit", Key: tcell.KeyRune, Rune: 'q', Label: "q",
		Description: "Quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "help", Key: tcell.KeyRune, Rune: '?', Label: "?",
		Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "command", Key: tcell.KeyRune, Rune: ':', Label: ":",
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "reload", Key: tcell.KeyRune, Rune: 'r', Label: "r",
		Description: "Reload", Visible: true,
		Handler: a.reload,
	})

	a.registry.AddPage(pageChats, &keys.Action{
		Name: "open", Key: tcell.KeyEnter, Label: "Enter",
		Description: "Open", Visible: true,
		Handler: func() { a.openChat(a.chatList.SelectedChat()) },
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Name: "filter", Key: tcell.KeyRune, Rune: '/', Label: "/",
		Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Name: "clear-filter", Key: tcell.KeyRune, Rune: '0', Label: "0",
		Description: "Clear filter",
		Handler: a.chatList.ClearFilter,
	})

	a.registry.AddPage(pageRoom, &keys.Action{
		Name: "compose", Key: tcell.KeyRune, Rune: 'i', Label: "i",
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.room.Composer()) },
	})
	a.registry.AddPage(pageRoom, &keys.Action{
		Name: "back", Key: tcell.KeyEscape, Label: "Esc",
		Description: "Back", Visible: true,
		Handler: a.closeRoom,
	})
	a.registry.AddPage(pageHelp, &keys.Action{
		Name: "back", Key: tcell.KeyEscape, Label: "Esc",
		Description: "Back", Visible: true,
		Handler: a.back,
	})
}

func (a *App) setupCallbacks() {
	a.room.SetOnSend(func(text string) {
		chatID := a.room.ChatID()
		go func() {
			err := a.engine.SendMessage(a.ctx, chatID, a.userID, text)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			a.flash.Err(fmt.Errorf("send failed: %w", err))
			a.app.QueueUpdateDraw(func() {
				if a.room.ChatID() == chatID {
					a.room.RestoreDraft(text)
				}
			})
		}()
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
	a.prompt.SetCommandHint(commandHint())

	a.pages.SetOnChange(func(stack []string) {
		a.updateChrome(stack)
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 20, 0, false)

	a.pages.AddPage(pageChats, a.chatList, true, false)
	a.pages.AddPage(pageRoom, a.room, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	a.layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.layout, true)
	a.pages.Reset(pageChats)
	a.app.SetFocus(a.chatList)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		focused := a.app.GetFocus()
		if focused == a.prompt.InputField {
			return event
		}
		if focused == a.room.Composer() {
			if event.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.room.Messages())
				return nil
			}
			return event
		}

		page := a.pages.Current()
		if page == pageChats && event.Key() == tcell.KeyRune && event.Rune() >= '1' && event.Rune() <= '9' {
			n, _ := strconv.Atoi(string(event.Rune()))
			a.openChat(a.chatList.ChatByIndex(n))
			return nil
		}
		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	v, err := a.engine.ActivateChatListView(a.ctx, a.userID)
	if err != nil {
		return err
	}
	a.listView = v
	a.chatList.Update(v.State())

	go a.watchList(v)
	go a.watchFeed()
	go a.watchFlash()
	go a.refreshLoop()

	err = a.app.Run()
	a.shutdown()
	return err
}

// Stop exits the TUI.
func (a *App) Stop() {
	a.app.Stop()
}

func (a *App) shutdown() {
	a.cancel()
	a.engine.Close()
}

func (a *App) watchList(v *intsync.ChatListView) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-v.Updates():
			st := v.State()
			a.app.QueueUpdateDraw(func() { a.chatList.Update(st) })
		}
	}
}

func (a *App) watchRoom(ctx context.Context, v *intsync.ChatRoomView) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.Updates():
			st := v.State()
			a.app.QueueUpdateDraw(func() {
				if ctx.Err() != nil {
					return
				}
				a.room.Update(st)
				a.updateChrome(a.pages.Stack())
			})
		}
	}
}

// watchFeed tracks subscription health published by the engine.
func (a *App) watchFeed() {
	sub := a.bus.Subscribe(bus.KindFeedStatus, 32)
	defer sub.Close()
	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-sub.C():
			change, ok := evt.Payload.(status.StatusChange)
			if !ok {
				continue
			}
			if a.feed.apply(change) && change.To == status.Stale {
				a.flash.Warn("connection to daemon lost, reconnecting...")
			}
		}
	}
}

func (a *App) watchFlash() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flash.Watch():
		case <-ticker.C:
		}
		msg := a.flash.Current()
		a.app.QueueUpdateDraw(func() { a.flashBar.Update(msg) })
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		a.refreshSessionInfo()
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) refreshSessionInfo() {
	data := ui.SessionData{Session: a.sessionName, User: a.userID, Feed: a.feed.summary()}
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	st, err := a.client.SessionStatus(ctx)
	if err != nil {
		a.logger.Debug("session status failed", zap.Error(err))
		data.Feed = "daemon unreachable"
	} else {
		data.Chats = st.Stats.Chats
		data.Messages = st.Stats.Messages
		data.Uptime = time.Duration(st.UptimeMs) * time.Millisecond
	}
	a.app.QueueUpdateDraw(func() { a.info.Update(data) })
}

// openChat activates the room view of chatID, replacing any open room.
func (a *App) openChat(chatID string) {
	if chatID == "" {
		return
	}
	a.stopRoomWatch()
	v, err := a.engine.ActivateChatRoomView(a.ctx, chatID)
	if err != nil {
		a.flash.Err(err)
		return
	}
	a.roomView = v
	a.room.Reset(chatID)
	a.room.Update(v.State())

	ctx, cancel := context.WithCancel(a.ctx)
	a.roomCancel = cancel
	go a.watchRoom(ctx, v)

	a.pages.Push(pageRoom)
	a.app.SetFocus(a.room.Messages())
}

// closeRoom deactivates the room view and returns to the chat list.
func (a *App) closeRoom() {
	a.stopRoomWatch()
	a.engine.DeactivateChatRoomView()
	a.roomView = nil
	a.pages.Reset(pageChats)
	a.app.SetFocus(a.chatList)
}

func (a *App) stopRoomWatch() {
	if a.roomCancel != nil {
		a.roomCancel()
		a.roomCancel = nil
	}
}

func (a *App) back() {
	a.pages.Pop()
	switch a.pages.Current() {
	case pageRoom:
		a.app.SetFocus(a.room.Messages())
	default:
		a.app.SetFocus(a.chatList)
	}
}

func (a *App) reload() {
	switch a.pages.Current() {
	case pageChats:
		if a.listView != nil {
			a.listView.Refresh()
		}
	case pageRoom:
		if a.roomView != nil {
			a.roomView.Refresh()
		}
	}
	go a.refreshSessionInfo()
}

func (a *App) showPrompt(mode ui.PromptMode) {
	if mode == ui.PromptFilter && a.pages.Current() != pageChats {
		return
	}
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.chatList.Filter())
	}
	a.layout.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.layout.ResizeItem(a.prompt, 0, 0)
	if a.pages.Current() == pageRoom {
		a.app.SetFocus(a.room.Messages())
		return
	}
	a.app.SetFocus(a.chatList)
}

func (a *App) updateChrome(stack []string) {
	labels := make([]string, 0, len(stack))
	for _, page := range stack {
		switch page {
		case pageRoom:
			labels = append(labels, a.room.Name())
		default:
			labels = append(labels, page)
		}
	}
	a.crumbs.Update(labels)
	if len(stack) > 0 {
		a.menu.Update(a.registry.Hints(stack[len(stack)-1]))
	}
}

// runCommand executes a ':' command. Remote calls run off the UI goroutine.
func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.pages.Push(pageHelp)
	case "join":
		if cmd.Args == "" {
			a.flash.Warn("usage: " + usage(cmd.Name))
			return
		}
		a.remote(func(ctx context.Context) (string, error) {
			if _, err := a.client.JoinChat(ctx, cmd.Args, a.userID); err != nil {
				return "", err
			}
			return cmd.Args, nil
		}, "joined chat")
	case "leave":
		chatID := a.room.ChatID()
		if a.pages.Current() != pageRoom || chatID == "" {
			a.flash.Warn("open a chat to leave it")
			return
		}
		a.closeRoom()
		a.remote(func(ctx context.Context) (string, error) {
			_, err := a.client.LeaveChat(ctx, chatID, a.userID)
			return "", err
		}, "left chat")
	case "name":
		if cmd.Args == "" {
			a.flash.Warn("usage: " + usage(cmd.Name))
			return
		}
		a.remote(func(ctx context.Context) (string, error) {
			return "", a.client.SetProfile(ctx, store.Profile{UserID: a.userID, Name: cmd.Args})
		}, "display name updated")
	case "new":
		if cmd.Args == "" {
			a.flash.Warn("usage: " + usage(cmd.Name))
			return
		}
		a.remote(func(ctx context.Context) (string, error) {
			act, err := a.client.CreateActivity(ctx, store.Activity{Name: cmd.Args, OrganizerID: a.userID})
			return act.ChatID, err
		}, "activity created")
	default:
		a.flash.Warn(fmt.Sprintf("unknown command: %s", cmd.Name))
	}
}

// remote runs fn in the background, flashes the outcome and opens the chat
// fn returns, if any.
func (a *App) remote(fn func(ctx context.Context) (string, error), done string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		chatID, err := fn(ctx)
		if err != nil {
			a.flash.Err(err)
			return
		}
		a.flash.Info(done)
		if chatID != "" {
			a.app.QueueUpdateDraw(func() { a.openChat(chatID) })
		}
	}()
}
