// Package conversation drives the phase state machine: every inbound
// message is interpreted in the context of the conversation's current
// phase, mutates at most one draft order, and leaves replies in the
// transactional outbox.
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aydinemre/menubot-backend/internal/candidates"
	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/draft"
	"github.com/aydinemre/menubot-backend/internal/extraction"
	"github.com/aydinemre/menubot-backend/internal/geo"
	"github.com/aydinemre/menubot-backend/internal/outbound"
	"github.com/aydinemre/menubot-backend/internal/payments"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/metrics"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deps collects everything the orchestrator needs.
type Deps struct {
	Client    *db.Client
	Repo      *Repository
	Menu      catalog.Provider
	Retriever *candidates.Retriever
	Extractor extraction.Client
	Drafts    *draft.Service
	Geo       *geo.Checker
	Payments  *payments.Service
	Outbox    *outbound.Service
	Locks     processingStore

	Extraction   config.ExtractionConfig
	Conversation config.ConversationConfig

	Logger  *logger.Logger
	Metrics *metrics.ConversationMetrics
}

// Service handles inbound messages, payment callbacks and agent replies.
type Service struct {
	client    *db.Client
	repo      *Repository
	menu      catalog.Provider
	retriever *candidates.Retriever
	extractor extraction.Client
	drafts    *draft.Service
	geo       *geo.Checker
	payments  *payments.Service
	outbox    *outbound.Service
	lock      *processingLock
	cfg       config.ExtractionConfig
	logg      *logger.Logger
	metrics   *metrics.ConversationMetrics
}

// NewService validates dependencies and builds the orchestrator.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Client == nil, deps.Repo == nil, deps.Menu == nil,
		deps.Retriever == nil, deps.Extractor == nil, deps.Drafts == nil,
		deps.Geo == nil, deps.Payments == nil, deps.Outbox == nil,
		deps.Locks == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "conversation: missing dependency")
	}
	return &Service{
		client:    deps.Client,
		repo:      deps.Repo,
		menu:      deps.Menu,
		retriever: deps.Retriever,
		extractor: deps.Extractor,
		drafts:    deps.Drafts,
		geo:       deps.Geo,
		payments:  deps.Payments,
		outbox:    deps.Outbox,
		lock:      newProcessingLock(deps.Locks, deps.Conversation.ProcessingLockTTL),
		cfg:       deps.Extraction,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
	}, nil
}

// HandleInbound processes one customer message end to end: phase dispatch,
// draft mutation, then one transaction persisting the conversation and the
// queued replies. Concurrent messages for the same conversation are
// rejected with CodeLockConflict.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) error {
	conv, err := s.repo.FindOrCreate(ctx, in.TenantID, in.From)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: load failed")
	}

	release, err := s.lock.acquire(ctx, conv.ID)
	if err != nil {
		s.metrics.IncInbound(string(conv.Phase), "busy")
		return err
	}
	defer release()

	// Another message may have finished between the lookup and the lock
	// grant; re-read under the lock so dispatch computes on its writes.
	conv, err = s.repo.FindByID(ctx, conv.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: load failed")
	}
	if s.logg != nil {
		ctx = s.logg.WithConversationID(ctx, conv.ID.String())
		ctx = s.logg.WithPhase(ctx, string(conv.Phase))
	}
	entryPhase := string(conv.Phase)

	now := time.Now().UTC()
	conv.LastMessageAt = &now
	if err := s.repo.InsertMessage(ctx, &models.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Direction:      models.MessageDirectionInbound,
		Kind:           in.Kind,
		Body:           in.body(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: record inbound turn")
	}

	snapshot, err := s.menu.PublishedMenu(ctx, in.TenantID)
	if err != nil {
		s.metrics.IncInbound(entryPhase, "error")
		return err
	}

	replies, err := s.dispatch(ctx, conv, snapshot, in)
	if err != nil {
		s.metrics.IncInbound(entryPhase, "error")
		if s.logg != nil {
			s.logg.Error(ctx, "dispatch failed, handing off", err)
		}
		// The customer is never left without a reply: degrade to a handoff
		// apology and only surface the error if even that cannot be queued.
		conv.Phase = enums.PhaseAgentHandoff
		conv.Status = enums.ConversationStatusPendingAgent
		if derr := s.deliver(ctx, conv, outbound.Text(replyHandoff)); derr != nil {
			return err
		}
		return nil
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Save(ctx, conv); err != nil {
			return err
		}
		for _, reply := range replies {
			if err := repo.InsertMessage(ctx, &models.ConversationMessage{
				ID:             uuid.New(),
				ConversationID: conv.ID,
				Direction:      models.MessageDirectionOutbound,
				Kind:           outboundKind(reply),
				Body:           reply.Text,
			}); err != nil {
				return err
			}
		}
		if len(replies) == 0 {
			return nil
		}
		return s.outbox.Enqueue(ctx, tx, conv.TenantID, conv.ID, conv.CustomerPhone, replies...)
	})
	if err != nil {
		s.metrics.IncInbound(entryPhase, "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: persist turn")
	}

	s.metrics.IncInbound(entryPhase, "ok")
	return nil
}

func (s *Service) dispatch(ctx context.Context, conv *models.Conversation, snapshot *catalog.Snapshot, in Inbound) ([]outbound.Message, error) {
	text := in.effectiveText()
	if text != "" && isReset(text) {
		return s.resetFlow(ctx, conv)
	}

	switch conv.Phase {
	case enums.PhaseIdle:
		return s.handleIdle(ctx, conv, snapshot, in)
	case enums.PhaseOrderCollecting:
		return s.handleCollecting(ctx, conv, snapshot, in)
	case enums.PhaseOrderReview:
		return s.handleReview(ctx, conv, in)
	case enums.PhaseLocationRequest:
		return s.handleLocationRequest(ctx, conv, in)
	case enums.PhasePaymentMethodSelection:
		return s.handlePaymentSelection(ctx, conv, in)
	case enums.PhasePaymentPending:
		return s.handlePaymentPending(ctx, conv, in)
	case enums.PhaseOrderConfirmed:
		s.clearWorkflow(conv)
		return s.handleIdle(ctx, conv, snapshot, in)
	case enums.PhaseAgentHandoff:
		conv.Status = enums.ConversationStatusOpen
		s.clearWorkflow(conv)
		return s.handleIdle(ctx, conv, snapshot, in)
	default:
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyUnknown)), nil
	}
}

// resetFlow is the global override: void everything and start over.
func (s *Service) resetFlow(ctx context.Context, conv *models.Conversation) ([]outbound.Message, error) {
	if _, err := s.drafts.VoidDraft(ctx, conv.ID); err != nil {
		return nil, err
	}
	conv.Status = enums.ConversationStatusOpen
	s.clearWorkflow(conv)
	return msgs(outbound.Text(replyResetDone)), nil
}

func (s *Service) cancelFlow(ctx context.Context, conv *models.Conversation) ([]outbound.Message, error) {
	if _, err := s.drafts.VoidDraft(ctx, conv.ID); err != nil {
		return nil, err
	}
	s.clearWorkflow(conv)
	return msgs(outbound.Text(replyCancelled)), nil
}

func (s *Service) clearWorkflow(conv *models.Conversation) {
	conv.Phase = enums.PhaseIdle
	conv.ActiveOrderID = nil
	conv.LastGeoCheck = nil
}

func (s *Service) handleIdle(ctx context.Context, conv *models.Conversation, snapshot *catalog.Snapshot, in Inbound) ([]outbound.Message, error) {
	switch in.Kind {
	case enums.MessageKindText, enums.MessageKindInteractive:
	case enums.MessageKindLocation:
		return msgs(outbound.Text(replyLocationTooEarly)), nil
	default:
		return msgs(outbound.Text(replyUnsupportedMedia)), nil
	}

	text := in.effectiveText()
	if isMenu(text) {
		return msgs(outbound.Text(snapshot.Summary())), nil
	}
	return s.runExtraction(ctx, conv, snapshot, text)
}

func (s *Service) handleCollecting(ctx context.Context, conv *models.Conversation, snapshot *catalog.Snapshot, in Inbound) ([]outbound.Message, error) {
	switch in.Kind {
	case enums.MessageKindText, enums.MessageKindInteractive:
	case enums.MessageKindLocation:
		return msgs(outbound.Text(replyLocationTooEarly)), nil
	default:
		return msgs(outbound.Text(replyUnsupportedMedia)), nil
	}

	text := in.effectiveText()
	if isCancel(text) {
		return s.cancelFlow(ctx, conv)
	}
	if isMenu(text) {
		return msgs(outbound.Text(snapshot.Summary())), nil
	}
	if isConfirm(text) {
		order, err := s.drafts.Draft(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			conv.Phase = enums.PhaseOrderReview
			return msgs(outbound.Text(reviewReply(draft.Summary(order)))), nil
		}
		// Confirming an empty cart means the word was part of the order
		// text, not a confirmation; let extraction judge it.
	}
	return s.runExtraction(ctx, conv, snapshot, text)
}

func (s *Service) handleReview(ctx context.Context, conv *models.Conversation, in Inbound) ([]outbound.Message, error) {
	text := in.effectiveText()
	if isCancel(text) {
		return s.cancelFlow(ctx, conv)
	}
	if isEdit(text) {
		conv.Phase = enums.PhaseOrderCollecting
		return msgs(outbound.Text(replyEditPrompt)), nil
	}
	if isConfirm(text) {
		conv.Phase = enums.PhaseLocationRequest
		replies := msgs(outbound.LocationRequest(replyLocationAsk))
		addresses, err := s.repo.ListAddresses(ctx, conv.TenantID, conv.CustomerPhone)
		if err != nil {
			return nil, err
		}
		if len(addresses) > 0 {
			replies = append(replies, savedAddressList(addresses))
		}
		return replies, nil
	}

	order, err := s.drafts.Draft(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyCartEmptied)), nil
	}
	return msgs(outbound.Text(reviewReply(draft.Summary(order)))), nil
}

func (s *Service) handleLocationRequest(ctx context.Context, conv *models.Conversation, in Inbound) ([]outbound.Message, error) {
	if in.Kind == enums.MessageKindLocation && in.Location != nil {
		return s.applyGeoCheck(ctx, conv, *in.Location, nil)
	}
	if in.Kind == enums.MessageKindInteractive && strings.HasPrefix(in.SelectionID, addressSelectPrefix) {
		addressID, err := uuid.Parse(strings.TrimPrefix(in.SelectionID, addressSelectPrefix))
		if err != nil {
			return msgs(outbound.LocationRequest(replyLocationRemind)), nil
		}
		address, err := s.repo.FindAddress(ctx, addressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return msgs(outbound.LocationRequest(replyLocationRemind)), nil
			}
			return nil, err
		}
		return s.applyGeoCheck(ctx, conv, address.Location, address.AddressText)
	}
	if isCancel(in.effectiveText()) {
		return s.cancelFlow(ctx, conv)
	}
	return msgs(outbound.LocationRequest(replyLocationRemind)), nil
}

func (s *Service) applyGeoCheck(ctx context.Context, conv *models.Conversation, location types.Coordinates, addressText *string) ([]outbound.Message, error) {
	order, err := s.drafts.Draft(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyCartEmptied)), nil
	}

	result, err := s.geo.CheckArea(ctx, conv.TenantID, location)
	if err != nil {
		return nil, err
	}

	check := &models.GeoCheckResult{
		WithinArea:       result.WithinArea,
		Location:         location,
		MinBasketKurus:   result.MinBasketKurus,
		DeliveryFeeKurus: result.DeliveryFeeKurus,
		CheckedAt:        time.Now().UTC(),
	}
	if result.Store != nil {
		check.StoreID = &result.Store.ID
	}
	conv.LastGeoCheck = check

	if !result.WithinArea {
		return msgs(outbound.Text(outOfAreaReply(result))), nil
	}
	if order.TotalKurus < result.MinBasketKurus {
		conv.Phase = enums.PhaseOrderCollecting
		return msgs(outbound.Text(minBasketReply(result.MinBasketKurus, order.TotalKurus))), nil
	}

	if _, err := s.drafts.AttachDelivery(ctx, order.ID, result.Store.ID, location, result.DeliveryFeeKurus, addressText); err != nil {
		return nil, err
	}
	conv.Phase = enums.PhasePaymentMethodSelection
	return msgs(paymentButtons()), nil
}

func (s *Service) handlePaymentSelection(ctx context.Context, conv *models.Conversation, in Inbound) ([]outbound.Message, error) {
	text := in.effectiveText()
	cashChosen := in.SelectionID == selectionPayCash || isCash(text)
	cardChosen := in.SelectionID == selectionPayCard || isCard(text)

	if !cashChosen && !cardChosen && isCancel(text) {
		return s.cancelFlow(ctx, conv)
	}
	if conv.ActiveOrderID == nil {
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyCartEmptied)), nil
	}

	switch {
	case cashChosen:
		return s.confirmWithCash(ctx, conv)
	case cardChosen:
		order, err := s.drafts.SetPaymentMethod(ctx, *conv.ActiveOrderID, enums.PaymentMethodCard)
		if err != nil {
			return nil, err
		}
		link, err := s.payments.CreateCardLink(ctx, order)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "card link creation failed", err)
			}
			return msgs(outbound.Text(replyCardUnavailable)), nil
		}
		if _, err := s.drafts.AttachPaymentLink(ctx, order.ID, link.CheckoutURL, link.CreatedAt); err != nil {
			return nil, err
		}
		conv.Phase = enums.PhasePaymentPending
		return msgs(outbound.Text(paymentLinkReply(link.CheckoutURL))), nil
	default:
		return msgs(paymentButtons()), nil
	}
}

func (s *Service) handlePaymentPending(ctx context.Context, conv *models.Conversation, in Inbound) ([]outbound.Message, error) {
	text := in.effectiveText()
	if !isCash(text) && isCancel(text) {
		return s.cancelFlow(ctx, conv)
	}
	if conv.ActiveOrderID == nil {
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyCartEmptied)), nil
	}
	if isCash(text) {
		return s.confirmWithCash(ctx, conv)
	}

	order, err := s.drafts.Draft(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.clearWorkflow(conv)
		return msgs(outbound.Text(replyCartEmptied)), nil
	}
	if s.payments.LinkExpired(order, time.Now().UTC()) {
		conv.Phase = enums.PhasePaymentMethodSelection
		return msgs(outbound.Text(replyLinkExpired), paymentButtons()), nil
	}
	return msgs(outbound.Text(paymentLinkReply(*order.PaymentLinkURL))), nil
}

func (s *Service) confirmWithCash(ctx context.Context, conv *models.Conversation) ([]outbound.Message, error) {
	order, err := s.drafts.SetPaymentMethod(ctx, *conv.ActiveOrderID, enums.PaymentMethodCash)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.drafts.MarkPendingConfirmation(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	conv.Phase = enums.PhaseOrderConfirmed
	return msgs(outbound.Text(confirmedReply(confirmed))), nil
}

// runExtraction is the shared interpret-and-merge path for free text.
func (s *Service) runExtraction(ctx context.Context, conv *models.Conversation, snapshot *catalog.Snapshot, text string) ([]outbound.Message, error) {
	order, err := s.drafts.Draft(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	var carryIn []uuid.UUID
	var draftSummary string
	if order != nil {
		for _, line := range order.Items {
			carryIn = append(carryIn, line.MenuItemID)
		}
		draftSummary = draft.Summary(order)
	}

	// Candidates shown to the previous turn stay in play, so an answer to a
	// clarification question can resolve without re-naming the item.
	last, err := s.repo.LatestIntent(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		carryIn = append(carryIn, last.CandidateItemIDs...)
	}

	found := s.retriever.Retrieve(ctx, snapshot, text, carryIn)
	history, err := s.history(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.extractor.Extract(ctx, extraction.Request{
		Text:         text,
		Snapshot:     snapshot,
		Candidates:   found,
		History:      history,
		DraftSummary: draftSummary,
	})
	if err != nil {
		s.metrics.ObserveExtraction("error", time.Since(start))
		if s.logg != nil {
			s.logg.Error(ctx, "extraction failed, handing off", err)
		}
		conv.Phase = enums.PhaseAgentHandoff
		conv.Status = enums.ConversationStatusPendingAgent
		return msgs(outbound.Text(replyHandoff)), nil
	}
	s.metrics.ObserveExtraction("ok", time.Since(start))
	s.recordIntent(ctx, conv, text, found, result)

	decision := extraction.Decide(result, s.cfg.MinConfidence, s.cfg.MinItemConfidence)
	switch decision.Kind {
	case extraction.DecideClarify:
		question := decision.Question
		if question == "" {
			question = replyClarifyGeneric
		}
		conv.Phase = enums.PhaseOrderCollecting
		return msgs(outbound.Text(question)), nil

	case extraction.DecideClarifyItems:
		names := make([]string, 0, len(decision.UnclearItems))
		for _, id := range decision.UnclearItems {
			if item := snapshot.ItemByID(id); item != nil {
				names = append(names, item.Name)
			}
		}
		conv.Phase = enums.PhaseOrderCollecting
		return msgs(outbound.Text(clarifyItemsReply(names))), nil

	case extraction.DecideMerge:
		outcome, err := s.drafts.Merge(ctx, conv.TenantID, conv.ID, snapshot, result)
		if err != nil {
			return nil, err
		}
		if outcome.Deleted {
			s.clearWorkflow(conv)
			return msgs(outbound.Text(replyCartEmptied)), nil
		}
		if outcome.Order == nil {
			return s.smallTalk(text, order != nil), nil
		}
		conv.ActiveOrderID = &outcome.Order.ID
		conv.Phase = enums.PhaseOrderCollecting
		reply := summaryReply(draft.Summary(outcome.Order))
		// After a min-basket bounce the area is already known; keep nudging
		// until the draft clears the store minimum.
		if check := conv.LastGeoCheck; check != nil && outcome.Order.TotalKurus < check.MinBasketKurus {
			reply += "\n\n" + minBasketNote(check.MinBasketKurus)
		}
		return msgs(outbound.Text(reply)), nil

	default:
		return s.smallTalk(text, order != nil), nil
	}
}

func (s *Service) smallTalk(text string, hasDraft bool) []outbound.Message {
	switch classifyUtterance(text) {
	case utteranceGreeting:
		return msgs(outbound.Text(replyGreeting))
	case utteranceThanks:
		return msgs(outbound.Text(replyThanks))
	case utteranceHelp:
		return msgs(outbound.Text(replyHelp))
	default:
		if hasDraft {
			return msgs(outbound.Text(replyConfirmPrompt))
		}
		return msgs(outbound.Text(replyUnknown))
	}
}

func (s *Service) history(ctx context.Context, conversationID uuid.UUID) ([]extraction.Turn, error) {
	limit := s.cfg.HistoryTurns
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.RecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	turns := make([]extraction.Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, extraction.Turn{
			Inbound: row.Direction == models.MessageDirectionInbound,
			Text:    row.Body,
		})
	}
	return turns, nil
}

// recordIntent writes the extraction audit row. Failures are logged, not
// surfaced; auditing never blocks the customer.
func (s *Service) recordIntent(ctx context.Context, conv *models.Conversation, text string, found []candidates.Candidate, result *extraction.Result) {
	if result == nil {
		return
	}

	items := make([]any, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, map[string]any{
			"menu_item_id":    item.MenuItemID.String(),
			"qty":             item.Qty,
			"action":          string(item.Action),
			"notes":           item.Notes,
			"item_confidence": item.ItemConfidence,
		})
	}
	candidateIDs := make([]uuid.UUID, 0, len(found))
	for _, candidate := range found {
		candidateIDs = append(candidateIDs, candidate.Item.ID)
	}

	intent := &models.OrderIntent{
		ID:             uuid.New(),
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		MessageText:    text,
		RawResult: types.JSONMap{
			"items":                  items,
			"confidence":             result.Confidence,
			"clarification_question": result.ClarificationQuestion,
			"order_notes":            result.OrderNotes,
		},
		Confidence:             result.Confidence,
		ClarificationRequested: result.ClarificationQuestion != "",
		CandidateItemIDs:       candidateIDs,
	}
	if err := s.repo.InsertIntent(ctx, intent); err != nil && s.logg != nil {
		s.logg.Error(ctx, "intent audit insert failed", err)
	}
}

// HandlePaymentCallback applies the provider's asynchronous verdict.
func (s *Service) HandlePaymentCallback(ctx context.Context, cb payments.Callback) error {
	conv, err := s.repo.FindByActiveOrder(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "conversation: no conversation for order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: load for callback")
	}

	var reply outbound.Message
	if cb.Success {
		order, err := s.drafts.MarkPendingConfirmation(ctx, cb.OrderID)
		if err != nil {
			return err
		}
		conv.Phase = enums.PhaseOrderConfirmed
		reply = outbound.Text(confirmedReply(order))
	} else {
		reply = outbound.Text(replyPaymentFailed)
	}

	return s.deliver(ctx, conv, reply)
}

// SendAgentReply records and queues a human agent's message. Lock
// ownership is verified by the caller. The conversation moves to the
// handoff phase so the bot stays quiet until the customer writes again.
func (s *Service) SendAgentReply(ctx context.Context, conversationID uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation: reply text is required")
	}
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "conversation: not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: load failed")
	}
	conv.Phase = enums.PhaseAgentHandoff
	conv.Status = enums.ConversationStatusPendingAgent
	return s.deliver(ctx, conv, outbound.Text(text))
}

// RecordIntentFeedback attaches the agent verdict to an extraction audit
// row.
func (s *Service) RecordIntentFeedback(ctx context.Context, intentID uuid.UUID, feedback enums.IntentFeedback) error {
	if !feedback.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversation: invalid intent feedback")
	}
	if err := s.repo.AttachIntentFeedback(ctx, intentID, feedback); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "conversation: intent not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: attach feedback")
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, conv *models.Conversation, reply outbound.Message) error {
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Save(ctx, conv); err != nil {
			return err
		}
		if err := repo.InsertMessage(ctx, &models.ConversationMessage{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Direction:      models.MessageDirectionOutbound,
			Kind:           outboundKind(reply),
			Body:           reply.Text,
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, conv.TenantID, conv.ID, conv.CustomerPhone, reply)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "conversation: persist reply")
	}
	return nil
}

func outboundKind(message outbound.Message) enums.MessageKind {
	if message.Kind == outbound.KindText {
		return enums.MessageKindText
	}
	return enums.MessageKindInteractive
}

func msgs(messages ...outbound.Message) []outbound.Message {
	return messages
}
