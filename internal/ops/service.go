// Package ops registers receptions, wastage and production, the operations
// staff report from the kitchen, on top of a storage.Store.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"koabot/internal/events"
	"koabot/internal/item"
	"koabot/internal/itemparser"
	"koabot/internal/models"
	"koabot/internal/storage"
)

// DefaultRecent is the number of suggestions returned when none is asked.
const DefaultRecent = 5

// Service validates requests, persists them and announces the result.
type Service struct {
	store  storage.Store
	events events.Publisher
	audit  storage.AuditSink
	parser *itemparser.Parser
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewService builds a Service. pub, audit and log may be nil.
func NewService(store storage.Store, pub events.Publisher, audit storage.AuditSink, log logrus.FieldLogger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:  store,
		events: pub,
		audit:  audit,
		parser: itemparser.Default(),
		log:    log,
		now:    time.Now,
	}
}

// UpsertUser creates the user holding telegramID, or renames it, and
// returns its ID.
func (s *Service) UpsertUser(ctx context.Context, telegramID, name string) (string, error) {
	telegramID = strings.TrimSpace(telegramID)
	if telegramID == "" {
		return "", invalid("telegram_id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unknown"
	}
	u, err := s.store.UpsertUser(ctx, &models.User{
		ID:         NewID(PrefixUser),
		TelegramID: telegramID,
		Name:       name,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s *Service) resolveUser(ctx context.Context, r Registrant) (string, error) {
	if strings.TrimSpace(r.TelegramID) != "" {
		return s.UpsertUser(ctx, r.TelegramID, r.Name)
	}
	if id := strings.TrimSpace(r.UserID); id != "" {
		return id, nil
	}
	return "", invalid("a registering user is required")
}

// ParseText parses every line of text, records each outcome in the audit
// sink and returns the lines or the first line error.
func (s *Service) ParseText(ctx context.Context, text, source string) ([]item.Line, error) {
	outcomes := s.parser.ParseAll(text)
	s.auditOutcomes(ctx, outcomes, source)
	return itemparser.Collect(outcomes)
}

func (s *Service) auditOutcomes(ctx context.Context, outcomes []itemparser.Outcome, source string) {
	if s.audit == nil || len(outcomes) == 0 {
		return
	}
	at := s.now().UTC()
	rows := make([]storage.LineAudit, 0, len(outcomes))
	for _, o := range outcomes {
		row := storage.LineAudit{
			Timestamp: at,
			Source:    source,
			RawText:   o.Text,
			Grammar:   o.Grammar,
			ErrorKind: item.KindName(o.Err),
		}
		if o.Line != nil {
			if b, err := json.Marshal(o.Line); err == nil {
				row.ParsedJSON = string(b)
			}
		}
		rows = append(rows, row)
	}
	if err := s.audit.RecordLines(ctx, rows); err != nil {
		s.log.WithError(err).WithField("source", source).Warn("line audit failed")
	}
}

// gatherItems returns structured items when given, otherwise the parsed
// lines of text.
func (s *Service) gatherItems(ctx context.Context, structured []ItemInput, text, source string) ([]item.Line, error) {
	if len(structured) == 0 && strings.TrimSpace(text) != "" {
		lines, err := s.ParseText(ctx, text, source)
		if err != nil {
			return nil, err
		}
		return lines, nil
	}

	lines := make([]item.Line, 0, len(structured))
	for _, in := range structured {
		l, err := in.toLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return nil, invalid("at least one item is required")
	}
	return lines, nil
}

// CreateReception stores a delivery and its items.
func (s *Service) CreateReception(ctx context.Context, req ReceptionRequest) (*models.Reception, error) {
	supplier := strings.TrimSpace(req.Supplier)
	if supplier == "" {
		return nil, invalid("supplier is required")
	}
	if req.Total != nil && *req.Total < 0 {
		return nil, invalid("total must not be negative")
	}
	now := s.now()
	occurred, err := ParseOccurredAt(req.OccurredAt, now)
	if err != nil {
		return nil, err
	}
	lines, err := s.gatherItems(ctx, req.Items, req.ItemsText, string(models.KindReception))
	if err != nil {
		return nil, err
	}
	userID, err := s.resolveUser(ctx, req.Registrant)
	if err != nil {
		return nil, err
	}

	r := &models.Reception{
		ID:                 NewID(PrefixReception),
		OccurredAt:         occurred,
		Supplier:           supplier,
		Total:              req.Total,
		AttachmentURL:      strings.TrimSpace(req.AttachmentURL),
		RegisteredByUserID: userID,
		CreatedAt:          now.UTC(),
	}
	for _, l := range lines {
		r.Items = append(r.Items, models.ReceptionItem{
			ID:          NewID(PrefixReceptionItem),
			ReceptionID: r.ID,
			Ref:         l.Ref,
			Product:     l.Product,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
		})
	}

	if err := s.store.InsertReception(ctx, r); err != nil {
		return nil, err
	}
	s.registered(ctx, models.KindReception, req.ChatID, []string{r.ID})
	s.log.WithFields(logrus.Fields{
		"reception": r.ID,
		"supplier":  r.Supplier,
		"items":     len(r.Items),
	}).Info("reception registered")
	return r, nil
}

// CreateWastage stores one wasted product.
func (s *Service) CreateWastage(ctx context.Context, req WastageRequest) (*models.Wastage, error) {
	ws, err := s.createWastages(ctx, req.Registrant, req.OccurredAt, "", req.AttachmentURL, req.ChatID, []ItemInput{req.ItemInput}, "")
	if err != nil {
		return nil, err
	}
	return &ws[0], nil
}

// CreateWastageBatch stores several wasted products. A "motivo: <text>"
// line in ItemsText sets the batch reason when Reason is empty; a reason
// written on an item line wins over the batch reason.
func (s *Service) CreateWastageBatch(ctx context.Context, req WastageBatchRequest) ([]models.Wastage, error) {
	text, reason := req.ItemsText, req.Reason
	if strings.TrimSpace(text) != "" {
		var inline string
		text, inline = itemparser.SplitReason(text)
		if strings.TrimSpace(reason) == "" {
			reason = inline
		}
	}
	return s.createWastages(ctx, req.Registrant, req.OccurredAt, reason, req.AttachmentURL, req.ChatID, req.Items, text)
}

func (s *Service) createWastages(ctx context.Context, reg Registrant, occurredAt, reason, attachment, chatID string, structured []ItemInput, text string) ([]models.Wastage, error) {
	now := s.now()
	occurred, err := ParseOccurredAt(occurredAt, now)
	if err != nil {
		return nil, err
	}
	lines, err := s.gatherItems(ctx, structured, text, string(models.KindWastage))
	if err != nil {
		return nil, err
	}
	if err := checkPrecision(lines); err != nil {
		return nil, err
	}
	userID, err := s.resolveUser(ctx, reg)
	if err != nil {
		return nil, err
	}

	reason = batchReason(reason)
	ws := make([]models.Wastage, 0, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		r := reason
		if l.Reason != "" {
			r = l.Reason
		}
		w := models.Wastage{
			ID:                 NewID(PrefixWastage),
			OccurredAt:         occurred,
			Ref:                l.Ref,
			Product:            l.Product,
			Quantity:           l.Quantity,
			Unit:               l.Unit,
			Reason:             r,
			AttachmentURL:      strings.TrimSpace(attachment),
			RegisteredByUserID: userID,
			CreatedAt:          now.UTC(),
		}
		ws = append(ws, w)
		ids = append(ids, w.ID)
	}

	if err := s.store.InsertWastages(ctx, ws); err != nil {
		return nil, err
	}
	s.registered(ctx, models.KindWastage, chatID, ids)
	s.log.WithFields(logrus.Fields{
		"wastages": len(ws),
		"reason":   reason,
	}).Info("wastage registered")
	return ws, nil
}

// CreateProduction stores a batch and its outputs.
func (s *Service) CreateProduction(ctx context.Context, req ProductionRequest) (*models.Production, error) {
	batch := strings.TrimSpace(req.BatchName)
	if batch == "" {
		return nil, invalid("batch_name is required")
	}
	now := s.now()
	occurred, err := ParseOccurredAt(req.OccurredAt, now)
	if err != nil {
		return nil, err
	}
	lines, err := s.gatherItems(ctx, req.Outputs, req.OutputsText, string(models.KindProduction))
	if err != nil {
		return nil, err
	}
	if err := checkPrecision(lines); err != nil {
		return nil, err
	}
	userID, err := s.resolveUser(ctx, req.ProducedBy)
	if err != nil {
		return nil, err
	}

	p := &models.Production{
		ID:               NewID(PrefixProduction),
		OccurredAt:       occurred,
		BatchName:        batch,
		ProducedByUserID: userID,
		CreatedAt:        now.UTC(),
	}
	for _, l := range lines {
		p.Outputs = append(p.Outputs, models.ProductionOutput{
			ID:           NewID(PrefixProductionOutput),
			ProductionID: p.ID,
			Ref:          l.Ref,
			Product:      l.Product,
			Quantity:     l.Quantity,
			Unit:         l.Unit,
		})
	}

	if err := s.store.InsertProduction(ctx, p); err != nil {
		return nil, err
	}
	s.registered(ctx, models.KindProduction, req.ChatID, []string{p.ID})
	s.log.WithFields(logrus.Fields{
		"production": p.ID,
		"batch":      p.BatchName,
		"outputs":    len(p.Outputs),
	}).Info("production registered")
	return p, nil
}

// registered logs the operation for undo and publishes it. Neither step
// fails the request: the records are already stored.
func (s *Service) registered(ctx context.Context, kind models.Kind, chatID string, ids []string) {
	now := s.now().UTC()
	if chatID = strings.TrimSpace(chatID); chatID != "" {
		op := &models.Operation{
			ID:        NewID(PrefixOperation),
			ChatID:    chatID,
			Kind:      kind,
			RecordIDs: ids,
			CreatedAt: now,
		}
		if err := s.store.RecordOperation(ctx, op); err != nil {
			s.log.WithError(err).WithField("chat", chatID).Error("record operation failed")
		}
	}
	s.publish(ctx, events.Event{Kind: kind, Action: events.ActionCreated, ChatID: chatID, RecordIDs: ids, At: now})
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"kind":   ev.Kind,
			"action": ev.Action,
		}).Warn("publish event failed")
	}
}

// Undo soft-deletes the records of the last operation registered from
// chatID and returns that operation. It returns storage.ErrNotFound when
// there is nothing left to undo.
func (s *Service) Undo(ctx context.Context, chatID string) (*models.Operation, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, invalid("chat_id is required")
	}
	op, err := s.store.LastOperation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SoftDelete(ctx, op); err != nil {
		return nil, fmt.Errorf("undo %s: %w", op.ID, err)
	}
	s.publish(ctx, events.Event{
		Kind:      op.Kind,
		Action:    events.ActionUndone,
		ChatID:    chatID,
		RecordIDs: op.RecordIDs,
		At:        s.now().UTC(),
	})
	s.log.WithFields(logrus.Fields{"chat": chatID, "operation": op.ID, "kind": op.Kind}).Info("operation undone")
	return op, nil
}

// Receptions returns live receptions whose day lies in [from, to].
func (s *Service) Receptions(ctx context.Context, from, to string) ([]models.Reception, error) {
	f, t, err := DayRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.ReceptionsBetween(ctx, f, t)
}

// Wastages returns live wastage whose day lies in [from, to].
func (s *Service) Wastages(ctx context.Context, from, to string) ([]models.Wastage, error) {
	f, t, err := DayRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.WastagesBetween(ctx, f, t)
}

// Productions returns live productions whose day lies in [from, to].
func (s *Service) Productions(ctx context.Context, from, to string) ([]models.Production, error) {
	f, t, err := DayRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.ProductionsBetween(ctx, f, t)
}

func (s *Service) RecentSuppliers(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	return s.store.RecentSuppliers(ctx, n)
}

func (s *Service) RecentBatches(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultRecent
	}
	return s.store.RecentBatches(ctx, n)
}

// Users lists every registered user.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.store.Users(ctx)
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
