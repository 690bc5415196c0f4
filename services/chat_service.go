package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/google/uuid"
)

// TypingDelay is how long the bot "types" before each reply
const TypingDelay = 1500 * time.Millisecond

// Free-text capture modes
const (
	FlowTracking   = "tracking"
	FlowPostalCode = "postal_code"
)

// Chat actions
const (
	ChatViewMenu       = "view-menu"
	ChatTrackOrder     = "track-order"
	ChatNewOrder       = "new-order"
	ChatOrderProblems  = "order-problems"
	ChatTalkToAgent    = "talk-to-agent"
	ChatOrderDelivery  = "order-delivery"
	ChatOrderPickup    = "order-pickup"
	ChatOrderDriveThru = "order-drive-thru"
	ChatViewCombos     = "view-combos"
	ChatMainMenu       = "main-menu"
)

var (
	mainMenuOptions = []models.ChatOption{
		{ID: "menu", Text: "View Menu", Action: ChatViewMenu, Emoji: "🍔"},
		{ID: "track", Text: "Track Order", Action: ChatTrackOrder, Emoji: "📋"},
		{ID: "new-order", Text: "Place New Order", Action: ChatNewOrder, Emoji: "🛒"},
		{ID: "problems", Text: "Problems with my Order", Action: ChatOrderProblems, Emoji: "❗"},
		{ID: "agent", Text: "Talk to an Agent", Action: ChatTalkToAgent, Emoji: "👨‍💼"},
	}
	backToMenuOptions = []models.ChatOption{
		{ID: "back-menu", Text: "Back to Main Menu", Action: ChatMainMenu, Emoji: "🏠"},
	}
	orderingOptions = []models.ChatOption{
		{ID: "combos", Text: "View Combos", Action: ChatViewCombos, Emoji: "🍔🍟"},
		{ID: "burgers", Text: "View Burgers", Action: "view-burgers", Emoji: "🍔"},
		{ID: "drinks", Text: "View Drinks", Action: "view-drinks", Emoji: "🥤"},
	}
)

const welcomeText = "Hello! Welcome to FastTech Foods! How can we help you today? 😊"

// chatReply is what a handler produces: the bot text, the next options and a flow change
type chatReply struct {
	text      string
	options   []models.ChatOption
	flow      string // entered when set
	clearFlow bool
}

var chatScript = map[string]func() chatReply{
	ChatViewMenu: func() chatReply {
		return chatReply{
			text: "Here is our full menu! Browse by category:",
			options: []models.ChatOption{
				{ID: "burgers", Text: "Burgers", Action: "menu-burgers", Emoji: "🍔"},
				{ID: "drinks", Text: "Drinks", Action: "menu-drinks", Emoji: "🥤"},
				{ID: "desserts", Text: "Desserts", Action: "menu-desserts", Emoji: "🍰"},
				backToMenuOptions[0],
			},
		}
	},
	ChatTrackOrder: func() chatReply {
		return chatReply{text: "To track your order, type the order number (e.g. ORD-1234567890):", flow: FlowTracking}
	},
	ChatNewOrder: func() chatReply {
		return chatReply{
			text: "Great! Would you like to pick up at the store or have it delivered?",
			options: []models.ChatOption{
				{ID: "pickup", Text: "Pick up at the Store", Action: ChatOrderPickup, Emoji: "🏪"},
				{ID: "delivery", Text: "Home Delivery", Action: ChatOrderDelivery, Emoji: "🚗"},
				{ID: "drive", Text: "Drive-thru", Action: ChatOrderDriveThru, Emoji: "🚙"},
			},
		}
	},
	ChatOrderProblems: func() chatReply {
		return chatReply{
			text: "Sorry about the trouble! How can I help?",
			options: []models.ChatOption{
				{ID: "late", Text: "Order is Late", Action: "problem-late", Emoji: "⏰"},
				{ID: "wrong", Text: "Wrong Order", Action: "problem-wrong", Emoji: "❌"},
				{ID: "cancel", Text: "Cancel Order", Action: "problem-cancel", Emoji: "🚫"},
				{ID: "agent-problem", Text: "Talk to an Agent", Action: ChatTalkToAgent, Emoji: "👨‍💼"},
			},
		}
	},
	ChatTalkToAgent: func() chatReply {
		return chatReply{
			text:    "You will be connected to one of our agents shortly! ⏳\n\nEstimated wait: 2 minutes\n\nIn the meantime, can I help with anything specific?",
			options: backToMenuOptions,
		}
	},
	ChatOrderDelivery: func() chatReply {
		return chatReply{text: "Please type your postal code so we can check the delivery area and estimated time:", flow: FlowPostalCode}
	},
	ChatOrderPickup:    orderingReply,
	ChatOrderDriveThru: orderingReply,
	ChatViewCombos: func() chatReply {
		return chatReply{
			text: "Check out our combos! Which one would you like to add to your order?",
			options: []models.ChatOption{
				{ID: "combo1", Text: "Big Burger Combo ($24.90)", Action: "add-combo1", Emoji: "🍔"},
				{ID: "combo2", Text: "Chicken Supreme Combo ($22.90)", Action: "add-combo2", Emoji: "🐔"},
				{ID: "combo3", Text: "Veggie Combo ($19.90)", Action: "add-combo3", Emoji: "🥗"},
				{ID: "back-order", Text: "Back", Action: ChatNewOrder, Emoji: "⬅️"},
			},
		}
	},
	ChatMainMenu: func() chatReply {
		return chatReply{text: "How can I help you today?", options: mainMenuOptions, clearFlow: true}
	},
}

func orderingReply() chatReply {
	return chatReply{
		text:    "Perfect! What would you like to order today? We have special combos, burgers, sides and drinks.",
		options: orderingOptions,
	}
}

func unknownActionReply() chatReply {
	return chatReply{text: "Sorry, I didn't understand. Can I help with something specific?", options: backToMenuOptions}
}

// OrderLookup finds an order in a session's history
type OrderLookup interface {
	GetOrder(ctx context.Context, sessionID, orderID string) (*models.Order, error)
}

type conversation struct {
	messages []models.ChatMessage
	flow     string
	pending  int
	timers   []Timer
}

// ChatService runs the scripted help chat of every session
type ChatService struct {
	orders OrderLookup
	clock  Clock
	logger *slog.Logger
	delay  time.Duration

	mu    sync.Mutex
	chats map[string]*conversation
}

// NewChatService creates a chat service; orders may be nil, in which case
// tracking lookups always report the order as not found
func NewChatService(orders OrderLookup, clock Clock, logger *slog.Logger) *ChatService {
	return &ChatService{
		orders: orders,
		clock:  clock,
		logger: logger,
		delay:  TypingDelay,
		chats:  make(map[string]*conversation),
	}
}

func (s *ChatService) message(text string, sender models.ChatSender, options []models.ChatOption) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.clock.Now(),
		Options:   options,
	}
}

// conversation returns the session's chat, starting it with the welcome message. Callers hold mu.
func (s *ChatService) conversation(sessionID string) *conversation {
	conv, ok := s.chats[sessionID]
	if !ok {
		conv = &conversation{
			messages: []models.ChatMessage{s.message(welcomeText, models.SenderBot, mainMenuOptions)},
		}
		s.chats[sessionID] = conv
	}
	return conv
}

func (c *conversation) forget(t Timer) {
	for i, armed := range c.timers {
		if armed == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

func (c *conversation) transcript() models.ChatTranscript {
	messages := make([]models.ChatMessage, len(c.messages))
	copy(messages, c.messages)
	return models.ChatTranscript{Messages: messages, IsTyping: c.pending > 0, CurrentFlow: c.flow}
}

// Transcript returns the session's conversation
func (s *ChatService) Transcript(sessionID string) models.ChatTranscript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation(sessionID).transcript()
}

// SelectOption records the chosen option and schedules the scripted reply for its action
func (s *ChatService) SelectOption(sessionID, action, text string) (models.ChatTranscript, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return models.ChatTranscript{}, &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Action is required"}
	}
	if strings.TrimSpace(text) == "" {
		text = action
	}

	return s.exchange(sessionID, text, func(string) chatReply {
		if handler, ok := chatScript[action]; ok {
			return handler()
		}
		return unknownActionReply()
	}), nil
}

// SendMessage records free text and schedules a reply routed by the current flow
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (models.ChatTranscript, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatTranscript{}, &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Message text is required"}
	}

	// the reply runs after the request has finished
	ctx = context.WithoutCancel(ctx)
	return s.exchange(sessionID, text, func(flow string) chatReply {
		switch flow {
		case FlowTracking:
			return s.trackingReply(ctx, sessionID, text)
		case FlowPostalCode:
			return postalCodeReply(text)
		default:
			return chatReply{text: "Thanks for your message! How can I help?", options: backToMenuOptions}
		}
	}), nil
}

// exchange appends the user message and arms the typing timer for the reply.
// The reply is computed when the timer fires, against the flow at that moment.
func (s *ChatService) exchange(sessionID, text string, reply func(flow string) chatReply) models.ChatTranscript {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversation(sessionID)
	conv.messages = append(conv.messages, s.message(text, models.SenderUser, nil))
	conv.pending++

	var timer Timer
	timer = s.clock.AfterFunc(s.delay, func() {
		s.mu.Lock()
		flow, live := "", s.chats[sessionID] == conv
		if live {
			flow = conv.flow
		}
		s.mu.Unlock()
		if !live {
			return
		}

		r := reply(flow)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.chats[sessionID] != conv {
			return
		}
		conv.forget(timer)
		conv.pending--
		conv.messages = append(conv.messages, s.message(r.text, models.SenderBot, r.options))
		switch {
		case r.clearFlow:
			conv.flow = ""
		case r.flow != "":
			conv.flow = r.flow
		}
	})
	conv.timers = append(conv.timers, timer)

	return conv.transcript()
}

func (s *ChatService) trackingReply(ctx context.Context, sessionID, text string) chatReply {
	if !strings.HasPrefix(strings.ToUpper(text), "ORD-") {
		return chatReply{text: "Please type a valid order number (e.g. ORD-1234567890):"}
	}

	orderID := "ORD-" + text[len("ORD-"):]
	if s.orders == nil {
		return orderNotFoundReply(orderID)
	}
	order, err := s.orders.GetOrder(ctx, sessionID, orderID)
	if err != nil {
		if !errors.Is(err, models.ErrOrderNotFound) {
			s.logger.Warn("chat order lookup failed", "session_id", sessionID, "order_id", orderID, "error", err)
		}
		return orderNotFoundReply(orderID)
	}

	remaining := int(order.EstimatedReadyAt().Sub(s.clock.Now()) / time.Minute)
	if remaining < 0 || order.IsReady() {
		remaining = 0
	}
	return chatReply{
		text: fmt.Sprintf("I found your order %s! 📋\n\nStatus: %s\nEstimated time: %d minutes\nDelivery method: %s\n\nAnything else?",
			order.ID, order.Status.Label(), remaining, order.DeliveryMethod.Label()),
		options: backToMenuOptions,
	}
}

func orderNotFoundReply(orderID string) chatReply {
	return chatReply{
		text:    fmt.Sprintf("I couldn't find order %s. Please check the number and try again (e.g. ORD-1234567890):", orderID),
		options: backToMenuOptions,
	}
}

// ValidPostalCode accepts 8 characters, or 9 when one of them is a hyphen
func ValidPostalCode(code string) bool {
	return len(code) == 8 || (len(code) == 9 && strings.Contains(code, "-"))
}

func postalCodeReply(code string) chatReply {
	if !ValidPostalCode(code) {
		return chatReply{text: "Please type a valid postal code (e.g. 12345-678):"}
	}
	return chatReply{
		text:      fmt.Sprintf("Delivery area confirmed! ✅\nEstimated time: 25-35 minutes\nDelivery fee: $%s\n\nWhat would you like to order today?", models.DeliveryFee.StringFixed(2)),
		options:   orderingOptions,
		clearFlow: true,
	}
}

// Reset drops the session's conversation and any reply still being typed
func (s *ChatService) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.chats[sessionID]; ok {
		for _, t := range conv.timers {
			t.Stop()
		}
		delete(s.chats, sessionID)
	}
}

// HandleSessionEvent restarts the chat when the session signs in or out
func (s *ChatService) HandleSessionEvent(event SessionEvent) {
	s.Reset(event.SessionID)
	if event.PreviousSessionID != "" {
		s.Reset(event.PreviousSessionID)
	}
}

// Stop cancels every pending reply
func (s *ChatService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.chats {
		for _, t := range conv.timers {
			t.Stop()
		}
		conv.timers = nil
	}
}
