package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/eliseohh/shipbot/internal/services/shipments"
	"github.com/eliseohh/shipbot/internal/store"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type CarrierRegistry interface {
	AddCarrier(ctx context.Context, name, urlTemplate string) (*models.Carrier, error)
	ListCarriers(ctx context.Context) ([]*models.Carrier, error)
}

type ShipmentRegistry interface {
	AddShipment(ctx context.Context, code, carrierName string) (*models.Shipment, error)
	SetStatus(ctx context.Context, code string, delivered bool) (int64, error)
	GetStatusAndURL(ctx context.Context, code string) (*models.ShipmentView, error)
	ListOngoing(ctx context.Context) ([]*models.ShipmentView, error)
}

type Capturer interface {
	Capture(ctx context.Context, url, code string) (string, error)
}

type Bot struct {
	api       *tele.Bot
	carriers  CarrierRegistry
	shipments ShipmentRegistry
	snapshots Capturer
	log       *slog.Logger

	mu       sync.RWMutex
	stopping bool
	inflight sync.WaitGroup
}

type Config struct {
	Token       string
	PollTimeout time.Duration
}

var (
	markdownOpts = &tele.SendOptions{ParseMode: tele.ModeMarkdown, DisableWebPagePreview: true}
	plainOpts    = &tele.SendOptions{DisableWebPagePreview: true}
)

const helpText = "Available commands:\n" +
	"/start - Start the bot.\n" +
	"/help - Show this help message.\n" +
	"/add\\_ship `code` `provider` - Add a new shipment.\n" +
	"/status `code` - Show status, tracking URL and a screenshot of the tracking page.\n" +
	"/track `code` - Show the stored shipment record.\n" +
	"/update `code` `true|false` - Mark a shipment delivered or not delivered.\n" +
	"/providers - List all shipping providers.\n" +
	"/add\\_provider `name` `url` - Add a provider. The url must contain `$$CODE$$`.\n" +
	"/ongoing\\_shipments - List shipments not delivered yet."

func New(cfg Config, carriers CarrierRegistry, ships ShipmentRegistry, snaps Capturer, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bot")

	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			logger.Error("telegram", "error", err.Error())
		},
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}

	b := &Bot{api: api, carriers: carriers, shipments: ships, snapshots: snaps, log: logger}
	b.register()
	return b, nil
}

// Run polls until ctx is done, then stops the poller and waits for handlers
// still sending replies.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		b.log.Info("stopping bot")
		b.api.Stop()
	}()

	b.log.Info("bot started", "username", b.api.Me.Username)
	b.api.Start()
	b.drain()
	b.log.Info("bot stopped")
	return nil
}

func (b *Bot) register() {
	b.api.Use(b.track, middleware.Recover(b.onPanic))

	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/add_ship", b.handleAddShip)
	b.api.Handle("/update", b.handleUpdate)
	b.api.Handle("/status", b.handleStatus)
	b.api.Handle("/track", b.handleTrack)
	b.api.Handle("/providers", b.handleProviders)
	b.api.Handle("/add_provider", b.handleAddProvider)
	b.api.Handle("/ongoing_shipments", b.handleOngoing)

	b.api.Handle(tele.OnText, func(c tele.Context) error {
		return c.Send("Sorry, I didn't understand that command. Use /help.")
	})
}

// track counts running handlers so shutdown can wait for them. Updates that
// reach it after drain started are dropped.
func (b *Bot) track(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.mu.RLock()
		if b.stopping {
			b.mu.RUnlock()
			return nil
		}
		b.inflight.Add(1)
		b.mu.RUnlock()
		defer b.inflight.Done()

		if m := c.Message(); m != nil && m.Chat != nil {
			b.log.Debug("update", "text", m.Text, "chat", m.Chat.ID)
		}
		return next(c)
	}
}

// drain stops admitting handlers and waits for the admitted ones.
func (b *Bot) drain() {
	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()
	b.inflight.Wait()
}

func (b *Bot) onPanic(err error, c tele.Context) {
	args := []any{"error", err.Error()}
	if m := c.Message(); m != nil {
		args = append(args, "text", m.Text)
		if m.Chat != nil {
			args = append(args, "chat", m.Chat.ID)
		}
	}
	b.log.Error("handler panic", args...)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("Welcome to the shipment tracking bot!")
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText, markdownOpts)
}

func (b *Bot) handleAddShip(c tele.Context) error {
	a, err := parseArgs(c.Message().Payload, bindAddShip)
	if err != nil {
		return c.Send("Usage: /add_ship <code> <provider>")
	}

	_, err = b.shipments.AddShipment(context.Background(), a.Code, a.Provider)
	switch {
	case errors.Is(err, shipments.ErrExists):
		return c.Send(fmt.Sprintf("Shipment with code %s already exists.", inlineCode(a.Code)), markdownOpts)
	case errors.Is(err, shipments.ErrUnknownCarrier):
		return c.Send(fmt.Sprintf("Provider '%s' not found. Use /providers to list them.", a.Provider), plainOpts)
	case err != nil:
		b.log.Error("add shipment", "code", a.Code, "error", err.Error())
		return c.Send(fmt.Sprintf("Error adding shipment: %v", err), plainOpts)
	}

	return c.Send("Shipment added with code: \n"+codeBlock(a.Code), markdownOpts)
}

func (b *Bot) handleUpdate(c tele.Context) error {
	a, err := parseArgs(c.Message().Payload, bindUpdate)
	if errors.Is(err, ErrInvalidStatus) {
		return c.Send(`Invalid status. Use "true" or "false"`)
	}
	if err != nil {
		return c.Send("Usage: /update `code` `[true|false]`", markdownOpts)
	}

	n, err := b.shipments.SetStatus(context.Background(), a.Code, a.Delivered())
	if err != nil {
		b.log.Error("update status", "code", a.Code, "error", err.Error())
		return c.Send(fmt.Sprintf("Error updating status: %v", err), plainOpts)
	}
	if n == 0 {
		return c.Send(fmt.Sprintf("Shipment with code '%s' not found.", a.Code), plainOpts)
	}

	return c.Send(fmt.Sprintf("Shipment status updated to `%s`.", a.Status), markdownOpts)
}

// handleStatus replies in a fixed order: status, url, "fetching", then the
// screenshot or the capture failure.
func (b *Bot) handleStatus(c tele.Context) error {
	a, err := parseArgs(c.Message().Payload, bindCode)
	if err != nil {
		return c.Send("Usage: /status `code`", markdownOpts)
	}

	ctx := context.Background()
	v, err := b.shipments.GetStatusAndURL(ctx, a.Code)
	if errors.Is(err, store.ErrNotFound) {
		return c.Send(fmt.Sprintf("Shipment with code '%s' not found.", a.Code), plainOpts)
	}
	if err != nil {
		b.log.Error("get shipment", "code", a.Code, "error", err.Error())
		return c.Send(fmt.Sprintf("Error getting shipment details: %v", err), plainOpts)
	}
	b.log.Info("status", "code", v.Code, "url", v.TrackingURL)

	if err := c.Send(fmt.Sprintf("Shipment Status: `%s`", v.StatusText()), markdownOpts); err != nil {
		return err
	}
	if err := c.Send("You can also check at this url\n"+v.TrackingURL, plainOpts); err != nil {
		return err
	}
	if err := c.Send("Fetching shipment details...", plainOpts); err != nil {
		return err
	}

	path, err := b.snapshots.Capture(ctx, v.TrackingURL, v.Code)
	if err != nil {
		return c.Send("Error capturing screenshot.", plainOpts)
	}
	defer b.removeArtifact(path)

	if err := c.Send(&tele.Photo{File: tele.FromDisk(path)}); err != nil {
		b.log.Error("send photo", "code", v.Code, "error", err.Error())
		return c.Send(fmt.Sprintf("Error sending photo: %v", err), plainOpts)
	}
	return nil
}

func (b *Bot) handleTrack(c tele.Context) error {
	a, err := parseArgs(c.Message().Payload, bindCode)
	if err != nil {
		return c.Send("Usage: /track `code`", markdownOpts)
	}

	v, err := b.shipments.GetStatusAndURL(context.Background(), a.Code)
	if errors.Is(err, store.ErrNotFound) {
		return c.Send(fmt.Sprintf("Shipment with code '%s' not found.", a.Code), plainOpts)
	}
	if err != nil {
		b.log.Error("track shipment", "code", a.Code, "error", err.Error())
		return c.Send(fmt.Sprintf("Error getting shipment details: %v", err), plainOpts)
	}

	return c.Send(fmt.Sprintf("Shipment details:\nID: %s\nCode: %s\nProvider: %s\nStatus: %s",
		inlineCode(v.ID), inlineCode(v.Code), inlineCode(v.Carrier.Name), inlineCode(v.StatusText())), markdownOpts)
}

func (b *Bot) handleProviders(c tele.Context) error {
	list, err := b.carriers.ListCarriers(context.Background())
	if err != nil {
		b.log.Error("list providers", "error", err.Error())
		return c.Send(fmt.Sprintf("Error listing providers: %v", err), plainOpts)
	}
	if len(list) == 0 {
		return c.Send("No providers found.")
	}

	lines := lo.Map(list, func(p *models.Carrier, _ int) string {
		return fmt.Sprintf("%s (%s)", p.Name, p.URLTemplate)
	})
	return c.Send("Available providers:\n"+strings.Join(lines, "\n"), plainOpts)
}

func (b *Bot) handleAddProvider(c tele.Context) error {
	a, err := parseArgs(c.Message().Payload, bindAddProvider)
	if err != nil {
		return c.Send("Usage: /add_provider `name` `url`", markdownOpts)
	}

	p, err := b.carriers.AddCarrier(context.Background(), a.Name, a.URL)
	if errors.Is(err, store.ErrConflict) {
		return c.Send(fmt.Sprintf("Provider '%s' already exists.", strings.ToUpper(a.Name)), plainOpts)
	}
	if err != nil {
		b.log.Error("add provider", "name", a.Name, "error", err.Error())
		return c.Send(fmt.Sprintf("Error adding provider: %v", err), plainOpts)
	}

	return c.Send(fmt.Sprintf("Provider '%s' added successfully.", p.Name), plainOpts)
}

func (b *Bot) handleOngoing(c tele.Context) error {
	list, err := b.shipments.ListOngoing(context.Background())
	if err != nil {
		b.log.Error("list ongoing", "error", err.Error())
		return c.Send(fmt.Sprintf("Error retrieving ongoing shipments: %v", err), plainOpts)
	}
	if len(list) == 0 {
		return c.Send("No ongoing shipments found.")
	}

	return c.Send(formatOngoing(list), markdownOpts)
}

// formatOngoing groups codes under their carrier, carriers in order of first
// appearance.
func formatOngoing(list []*models.ShipmentView) string {
	carrierOf := func(v *models.ShipmentView) string { return strings.ToUpper(v.Carrier.Name) }
	names := lo.Uniq(lo.Map(list, func(v *models.ShipmentView, _ int) string { return carrierOf(v) }))
	groups := lo.GroupBy(list, carrierOf)

	var sb strings.Builder
	sb.WriteString("Ongoing shipments:\n")
	for _, name := range names {
		codes := lo.Map(groups[name], func(v *models.ShipmentView, _ int) string { return v.Code })
		fmt.Fprintf(&sb, "%s\n%s\n", carrierHeading(name), codeBlock(strings.Join(codes, "\n")))
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// carrierHeading bolds name unless it holds markup characters; Telegram does
// not allow escapes inside an entity, so those names are escaped instead.
func carrierHeading(name string) string {
	if strings.ContainsAny(name, "_*`[") {
		return markdownEscaper.Replace(name)
	}
	return "*" + name + "*"
}

// inlineCode and codeBlock put s in a code entity. A backtick would end the
// entity early, so such values go out escaped as plain text.
func inlineCode(s string) string {
	if strings.Contains(s, "`") {
		return markdownEscaper.Replace(s)
	}
	return "`" + s + "`"
}

func codeBlock(s string) string {
	if strings.Contains(s, "`") {
		return markdownEscaper.Replace(s)
	}
	return "```\n" + s + "\n```"
}

func (b *Bot) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		b.log.Warn("remove screenshot", "path", path, "error", err.Error())
	}
}
