package dunning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ju-nu/ShopwareDunning/internal/broker/messages"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/mailer"
	"github.com/ju-nu/ShopwareDunning/internal/integrations/ordersource"
	"github.com/ju-nu/ShopwareDunning/internal/models"
	"github.com/ju-nu/ShopwareDunning/internal/storage/pgjournal"
)

// SourceFactory builds the order-backend client for one tenant (each tenant
// has its own base URL and credentials).
type SourceFactory func(t models.Tenant) ordersource.Client

// MailerFactory builds the mail client for one tenant (per-tenant API key).
type MailerFactory func(t models.Tenant) mailer.Client

type Renderer interface {
	Render(templateID string, data map[string]string) (string, error)
}

type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Journal interface {
	RecordNotice(ctx context.Context, n pgjournal.Notice) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type ChannelCache interface {
	GetChannelID(ctx context.Context, tenant string) (string, bool, error)
	SetChannelID(ctx context.Context, tenant, id string, ttl time.Duration) error
}

// Runner drives the dunning cycle: one pass over all tenants, one tenant at a
// time, one order at a time. There is deliberately no parallelism; the fixed
// delays are a courtesy to the external APIs. Correctness across repeated
// cycles comes from the forward-only stage markers, not from locking.
type Runner struct {
	tenants   []models.Tenant
	newSource SourceFactory
	newMailer MailerFactory
	renderer  Renderer

	producer Producer     // optional
	journal  Journal      // optional
	rl       RateLimiter  // optional
	channels ChannelCache // optional

	cycleInterval      time.Duration
	pageLimit          int
	orderDelay         time.Duration
	tenantDelay        time.Duration
	rateLimitPerMinute int64

	dryRun     bool
	inspectDir string

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalOrders         atomic.Int64
	totalSent           atomic.Int64
	totalSkipped        atomic.Int64
	totalMissingInvoice atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(tenants []models.Tenant, newSource SourceFactory, newMailer MailerFactory, renderer Renderer) *Runner {
	return &Runner{
		tenants:   tenants,
		newSource: newSource,
		newMailer: newMailer,
		renderer:  renderer,

		cycleInterval:     time.Hour,
		pageLimit:         50,
		orderDelay:        500 * time.Millisecond,
		tenantDelay:       5 * time.Second,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Runner) WithSettings(cycleInterval time.Duration, pageLimit int, orderDelay, tenantDelay time.Duration, rlPerMin int64) *Runner {
	if cycleInterval > 0 {
		r.cycleInterval = cycleInterval
	}
	if pageLimit > 0 {
		r.pageLimit = pageLimit
	}
	if orderDelay > 0 {
		r.orderDelay = orderDelay
	}
	if tenantDelay > 0 {
		r.tenantDelay = tenantDelay
	}
	if rlPerMin > 0 {
		r.rateLimitPerMinute = rlPerMin
	}
	return r
}

func (r *Runner) WithProducer(p Producer) *Runner {
	r.producer = p
	return r
}

func (r *Runner) WithJournal(j Journal) *Runner {
	r.journal = j
	return r
}

func (r *Runner) WithRateLimiter(rl RateLimiter) *Runner {
	r.rl = rl
	return r
}

func (r *Runner) WithChannelCache(c ChannelCache) *Runner {
	r.channels = c
	return r
}

// WithDryRun suppresses sends and marker writes; downloaded invoices land in
// the inspection directory instead.
func (r *Runner) WithDryRun(inspectDir string) *Runner {
	r.dryRun = true
	r.inspectDir = inspectDir
	return r
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (r *Runner) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt           time.Time  `json:"startedAt"`
	LastCycleAt         *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt       *time.Time `json:"lastTriggerAt,omitempty"`
	DryRun              bool       `json:"dryRun"`
	TotalOrders         int64      `json:"totalOrders"`
	TotalSent           int64      `json:"totalSent"`
	TotalSkipped        int64      `json:"totalSkipped"`
	TotalMissingInvoice int64      `json:"totalMissingInvoice"`
	TotalErrors         int64      `json:"totalErrors"`
	LastError           string     `json:"lastError,omitempty"`
}

func (r *Runner) Stats() Stats {
	st := Stats{
		StartedAt:           time.Unix(0, r.startedAtUnixNano).UTC(),
		DryRun:              r.dryRun,
		TotalOrders:         r.totalOrders.Load(),
		TotalSent:           r.totalSent.Load(),
		TotalSkipped:        r.totalSkipped.Load(),
		TotalMissingInvoice: r.totalMissingInvoice.Load(),
		TotalErrors:         r.totalErrors.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

// Run performs one cycle immediately, then repeats on the cycle interval
// until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.RunOnce(ctx)

	t := time.NewTicker(r.cycleInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.RunOnce(ctx)
		case <-r.triggerCh:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce is a single pass over all tenants. Cancellation is honored between
// tenants and between orders, never mid-flight of a network call.
func (r *Runner) RunOnce(ctx context.Context) {
	r.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	for i, t := range r.tenants {
		if ctx.Err() != nil {
			slog.Info("shutdown requested, skipping remaining tenants")
			return
		}
		if i > 0 && !sleepCtx(ctx, r.tenantDelay) {
			return
		}
		if err := r.processTenant(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
			// A tenant failure (e.g. channel resolution) aborts only that
			// tenant's pass.
			r.recordError(err)
			slog.Error("tenant pass failed", "tenant", t.Name, "error", err.Error())
		}
	}
}

func (r *Runner) processTenant(ctx context.Context, t models.Tenant) error {
	src := r.newSource(t)
	ml := r.newMailer(t)

	channelID, err := r.resolveChannel(ctx, src, t)
	if err != nil {
		return errors.Wrap(err, "resolve sales channel")
	}
	slog.Info("tenant pass", "tenant", t.Name, "channel", channelID, "dry_run", r.dryRun)

	for page := 1; ; page++ {
		r.allowAPICall(ctx, t.Name)
		orders, err := src.SearchDueOrders(ctx, channelID, page, r.pageLimit)
		if err != nil {
			return errors.Wrapf(err, "search orders page %d", page)
		}

		for _, o := range orders {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.totalOrders.Add(1)
			if err := r.processOrder(ctx, src, ml, t, channelID, o); err != nil {
				// One order's failure never aborts the tenant loop.
				r.totalErrors.Add(1)
				r.recordError(err)
				slog.Error("process order", "tenant", t.Name, "order", o.Number, "error", err.Error())
			}
			if !sleepCtx(ctx, r.orderDelay) {
				return ctx.Err()
			}
		}

		// A short page means the result set is exhausted.
		if len(orders) < r.pageLimit {
			return nil
		}
	}
}

func (r *Runner) resolveChannel(ctx context.Context, src ordersource.Client, t models.Tenant) (string, error) {
	if t.SalesChannelID != "" {
		return t.SalesChannelID, nil
	}

	if r.channels != nil {
		id, ok, err := r.channels.GetChannelID(ctx, t.Name)
		if err != nil {
			slog.Warn("channel cache read", "tenant", t.Name, "error", err.Error())
		} else if ok {
			return id, nil
		}
	}

	id, err := src.ResolveChannelID(ctx, t.SalesChannelName)
	if err != nil {
		return "", err
	}

	if r.channels != nil {
		if err := r.channels.SetChannelID(ctx, t.Name, id, 24*time.Hour); err != nil {
			slog.Warn("channel cache write", "tenant", t.Name, "error", err.Error())
		}
	}
	return id, nil
}

func (r *Runner) processOrder(ctx context.Context, src ordersource.Client, ml mailer.Client, t models.Tenant, channelID string, o *models.Order) error {
	if len(o.Documents) == 0 {
		slog.Info("order carries no documents, skipping", "tenant", t.Name, "order", o.Number)
		r.totalSkipped.Add(1)
		return nil
	}

	doc, hasInvoice := o.InvoiceDocument()
	if !hasInvoice {
		// No invoice, no stage decision. This notification has no marker, so
		// it repeats every cycle until an invoice shows up.
		return r.notifyMissingInvoice(ctx, ml, t, o)
	}

	if o.HasPaidTransaction() {
		slog.Info("order settled, leaving dunning pipeline", "tenant", t.Name, "order", o.Number)
		r.totalSkipped.Add(1)
		return nil
	}

	now := time.Now().UTC()
	stage := Decide(o.Markers(), o.Ignored(), t.DueDays, now)
	if stage == models.StageNone {
		r.totalSkipped.Add(1)
		return nil
	}
	info, ok := stage.Info()
	if !ok {
		return errors.Errorf("no stage metadata for %v", stage)
	}

	// The customer address is load-bearing; the comment is cosmetic and may
	// stay empty.
	if o.CustomerEmail == "" {
		return errors.Errorf("order %s has no customer email", o.Number)
	}

	r.allowAPICall(ctx, t.Name)
	pdf, err := src.DownloadDocument(ctx, doc.ID, doc.DeepLinkCode)
	if err != nil {
		return errors.Wrap(err, "download invoice")
	}

	templateID := t.TemplateIDs[info.TemplateIndex]
	html, err := r.renderer.Render(templateID, map[string]string{
		"orderNumber":  o.Number,
		"customerName": o.CustomerName,
		"orderDate":    o.OrderDate.Format("02.01.2006"),
		"amountTotal":  fmt.Sprintf("%.2f", o.AmountTotal),
		"comment":      o.Comment,
		"stageName":    info.Name,
		"dueDays":      strconv.Itoa(t.DueDays),
	})
	if err != nil {
		return errors.Wrapf(err, "render template %s", templateID)
	}

	subject := fmt.Sprintf(info.SubjectFormat, o.Number)

	if r.dryRun {
		if err := r.writeInspectionPDF(channelID, o.Number, doc.ID, pdf); err != nil {
			slog.Warn("write dry-run artifact", "tenant", t.Name, "order", o.Number, "error", err.Error())
		}
		slog.Info("dry-run: send and marker write suppressed",
			"tenant", t.Name, "order", o.Number, "stage", info.Name, "to", o.CustomerEmail)
		r.journalNotice(ctx, t, o, info, templateID, now, true)
		return nil
	}

	err = ml.Send(ctx, mailer.Message{
		To:       o.CustomerEmail,
		ToName:   o.CustomerName,
		From:     t.SenderEmail,
		FromName: t.SenderName,
		Subject:  subject,
		HTML:     html,
		Attachment: &mailer.Attachment{
			Filename: fmt.Sprintf("rechnung_%s.pdf", o.Number),
			Content:  pdf,
		},
	})
	if err != nil {
		// Marker stays unset, so the same stage is recomputed next cycle.
		return errors.Wrap(err, "send dunning mail")
	}

	if err := src.UpdateOrderCustomFields(ctx, o.ID, map[string]any{info.MarkerKey: now.Unix()}); err != nil {
		// Mail went out but the marker did not stick: next cycle repeats the
		// stage. At-least-once is the accepted trade-off here.
		return errors.Wrap(err, "persist stage marker")
	}

	r.totalSent.Add(1)
	slog.Info("dunning mail sent", "tenant", t.Name, "order", o.Number, "stage", info.Name, "to", o.CustomerEmail)
	r.journalNotice(ctx, t, o, info, templateID, now, false)
	r.publishNotice(ctx, t, o, info, templateID, now)
	return nil
}

func (r *Runner) notifyMissingInvoice(ctx context.Context, ml mailer.Client, t models.Tenant, o *models.Order) error {
	r.totalMissingInvoice.Add(1)

	if r.dryRun {
		slog.Info("dry-run: missing-invoice notification suppressed", "tenant", t.Name, "order", o.Number)
		return nil
	}

	subject := fmt.Sprintf("Fehlende Rechnung zu Bestellung %s", o.Number)
	html := fmt.Sprintf(
		"<p>Bestellung %s (Kunde %s) steht auf Zahlungserinnerung, hat aber kein Rechnungsdokument. Bitte Rechnung erzeugen.</p>",
		o.Number, o.CustomerName)

	err := ml.Send(ctx, mailer.Message{
		To:       t.ContactEmail,
		From:     t.SenderEmail,
		FromName: t.SenderName,
		Subject:  subject,
		HTML:     html,
	})
	if err != nil {
		return errors.Wrap(err, "send missing-invoice notification")
	}
	slog.Info("missing-invoice notification sent", "tenant", t.Name, "order", o.Number, "to", t.ContactEmail)
	return nil
}

func (r *Runner) journalNotice(ctx context.Context, t models.Tenant, o *models.Order, info models.StageInfo, templateID string, sentAt time.Time, dryRun bool) {
	if r.journal == nil {
		return
	}
	err := r.journal.RecordNotice(ctx, pgjournal.Notice{
		Tenant:      t.Name,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Stage:       info.Name,
		Recipient:   o.CustomerEmail,
		TemplateID:  templateID,
		DryRun:      dryRun,
		SentAt:      sentAt,
	})
	if err != nil {
		// The journal is an audit trail, never a reason to fail the order.
		slog.Warn("journal notice", "tenant", t.Name, "order", o.Number, "error", err.Error())
	}
}

func (r *Runner) publishNotice(ctx context.Context, t models.Tenant, o *models.Order, info models.StageInfo, templateID string, sentAt time.Time) {
	if r.producer == nil {
		return
	}
	b, err := json.Marshal(messages.NoticeSent{
		Tenant:      t.Name,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Stage:       info.Name,
		Recipient:   o.CustomerEmail,
		TemplateID:  templateID,
		SentAt:      sentAt,
	})
	if err != nil {
		slog.Warn("marshal notice event", "order", o.Number, "error", err.Error())
		return
	}
	if err := r.producer.Publish(ctx, []byte(o.ID), b); err != nil {
		slog.Warn("publish notice event", "tenant", t.Name, "order", o.Number, "error", err.Error())
	}
}

func (r *Runner) allowAPICall(ctx context.Context, tenant string) {
	if r.rl == nil || r.rateLimitPerMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:shopware:%s:%s", tenant, time.Now().UTC().Format("200601021504"))
	allowed, n, err := r.rl.Allow(ctx, key, r.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		slog.Warn("rate limiter", "tenant", tenant, "error", err.Error())
		return
	}
	if !allowed {
		slog.Warn("rate limit exceeded, easing off", "tenant", tenant, "count", n)
		sleepCtx(ctx, 500*time.Millisecond)
	}
}

func (r *Runner) writeInspectionPDF(channelID, orderNumber, documentID string, data []byte) error {
	dir := filepath.Join(r.inspectDir, channelID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir inspection dir")
	}
	name := fmt.Sprintf("%s_%s.pdf", orderNumber, documentID)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return errors.Wrap(err, "write inspection pdf")
	}
	return nil
}

func (r *Runner) recordError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
