package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/log"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/subscription"
	"github.com/radiotree/radiotree-go/pkg/transport"
	"github.com/radiotree/radiotree-go/pkg/tree"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// DefaultNotifyInterval is how often pending subscription changes are flushed.
const DefaultNotifyInterval = 100 * time.Millisecond

// Sender is a connection the server can answer on. transport.ServerConn
// implements it.
type Sender interface {
	ConnID() string
	Send(data []byte) error
}

// NotificationHandler receives every outgoing notification together with the
// connection ID that owns the subscription.
type NotificationHandler func(owner string, notif *wire.Notification)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// EventLogger records decoded messages (optional).
	EventLogger log.Logger

	// Subscriptions configures the subscription manager.
	Subscriptions subscription.Config

	// NotifyInterval is the flush period used by Run.
	NotifyInterval time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Subscriptions:  subscription.DefaultConfig(),
		NotifyInterval: DefaultNotifyInterval,
	}
}

// Server answers protocol requests against a tree and its registry.
type Server struct {
	tree     *tree.Tree
	registry *component.Registry
	subs     *subscription.Manager
	watches  *watchSet

	logger   *slog.Logger
	events   log.Logger
	interval time.Duration

	mu      sync.RWMutex
	conns   map[string]Sender
	handler NotificationHandler
}

// NewServer creates a server over t and reg. reg may be nil, in which case
// component operations fail with StatusInternal.
func NewServer(t *tree.Tree, reg *component.Registry, config ServerConfig) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.EventLogger == nil {
		config.EventLogger = log.NoopLogger{}
	}
	if config.NotifyInterval <= 0 {
		config.NotifyInterval = DefaultNotifyInterval
	}
	s := &Server{
		tree:     t,
		registry: reg,
		subs:     subscription.NewManagerWithConfig(config.Subscriptions),
		logger:   config.Logger,
		events:   config.EventLogger,
		interval: config.NotifyInterval,
		conns:    make(map[string]Sender),
	}
	s.watches = newWatchSet(t, s.subs.NotifyChange)
	s.subs.OnNotification(s.deliver)
	return s
}

// SetNotificationHandler installs an additional observer of outgoing
// notifications.
func (s *Server) SetNotificationHandler(handler NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Run flushes subscription notifications until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.subs.Run(ctx, s.interval)
}

// Flush sends every notification that is currently due.
func (s *Server) Flush() {
	s.subs.ProcessNotifications()
}

// HandleMessage decodes a request frame from conn, dispatches it and sends
// the response back on conn.
func (s *Server) HandleMessage(ctx context.Context, conn Sender, data []byte) {
	owner := conn.ConnID()
	s.mu.Lock()
	s.conns[owner] = conn
	s.mu.Unlock()

	start := time.Now()
	req, err := wire.DecodeRequest(data)
	var resp *wire.Response
	if err != nil {
		id := uint32(0)
		if req != nil {
			id = req.MessageID
		}
		s.logger.Debug("rejecting malformed request", slog.String("conn", owner), slog.Any("error", err))
		resp = errorResponse(id, wire.StatusInvalidRequest, err.Error())
	} else {
		s.logMessage(owner, log.DirectionIn, &log.MessageEvent{
			Type:      log.MessageTypeRequest,
			MessageID: req.MessageID,
			Operation: &req.Operation,
			Path:      req.Path,
		})
		resp = s.HandleRequest(ctx, owner, req)
	}

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("failed to encode response", slog.String("conn", owner), slog.Any("error", err))
		return
	}
	elapsed := time.Since(start)
	s.logMessage(owner, log.DirectionOut, &log.MessageEvent{
		Type:           log.MessageTypeResponse,
		MessageID:      resp.MessageID,
		Status:         &resp.Status,
		ProcessingTime: &elapsed,
	})
	if err := conn.Send(out); err != nil {
		s.logger.Debug("failed to send response", slog.String("conn", owner), slog.Any("error", err))
	}
}

// Bind returns cfg with its message and disconnect handlers routed to s.
// An existing OnDisconnect still runs.
func (s *Server) Bind(ctx context.Context, cfg transport.ServerConfig) transport.ServerConfig {
	cfg.OnMessage = func(c *transport.ServerConn, msg []byte) {
		s.HandleMessage(ctx, c, msg)
	}
	prev := cfg.OnDisconnect
	cfg.OnDisconnect = func(c *transport.ServerConn) {
		s.Disconnect(c.ConnID())
		if prev != nil {
			prev(c)
		}
	}
	return cfg
}

// Disconnect drops the subscriptions owned by a closed connection.
func (s *Server) Disconnect(owner string) {
	s.mu.Lock()
	delete(s.conns, owner)
	s.mu.Unlock()

	for _, id := range s.ownedSubscriptions(owner) {
		s.watches.remove(id)
	}
	if n := s.subs.UnsubscribeOwner(owner); n > 0 {
		s.logger.Debug("dropped subscriptions of closed connection",
			slog.String("conn", owner), slog.Int("count", n))
	}
}

// SubscriptionCount returns the number of active subscriptions.
func (s *Server) SubscriptionCount() int {
	return s.subs.Count()
}

// HandleRequest dispatches one decoded request on behalf of owner.
func (s *Server) HandleRequest(ctx context.Context, owner string, req *wire.Request) *wire.Response {
	if err := req.Validate(); err != nil {
		return errorResponse(req.MessageID, wire.StatusInvalidRequest, err.Error())
	}

	var (
		payload any
		err     error
	)
	switch req.Operation {
	case wire.OpGet:
		payload, err = s.handleGet(req)
	case wire.OpSet:
		payload, err = s.handleSet(req)
	case wire.OpList:
		payload, err = s.handleList(req)
	case wire.OpCreate:
		payload, err = s.handleCreate(req)
	case wire.OpRemove:
		err = s.tree.RemoveSubtree(req.Path)
	case wire.OpSubscribe:
		payload, err = s.handleSubscribe(owner, req)
	case wire.OpUnsubscribe:
		err = s.handleUnsubscribe(owner, req)
	case wire.OpComponents:
		payload, err = s.handleComponents()
	case wire.OpLookup:
		payload, err = s.handleLookup(req)
	case wire.OpUnregister:
		err = s.handleUnregister(req)
	case wire.OpSnapshot:
		payload, err = s.handleSnapshot(req)
	default:
		err = fmt.Errorf("%w: operation %d", ErrInvalidRequest, req.Operation)
	}

	if err != nil {
		status := StatusFromError(err)
		if status == wire.StatusInternal {
			s.logger.Warn("request failed",
				slog.String("op", req.Operation.String()),
				slog.String("path", req.Path),
				slog.Any("error", err))
		}
		return errorResponse(req.MessageID, status, err.Error())
	}

	resp, err := wire.NewResponse(req.MessageID, wire.StatusSuccess, payload)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusInternal, err.Error())
	}
	return resp
}

func (s *Server) handleGet(req *wire.Request) (any, error) {
	h, err := s.tree.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	return valuePayload(h)
}

func (s *Server) handleSet(req *wire.Request) (any, error) {
	var p wire.SetPayload
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if !p.Value.IsValid() {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidRequest)
	}
	h, err := s.tree.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	if err := h.Set(p.Value); err != nil {
		return nil, err
	}
	return valuePayload(h)
}

func (s *Server) handleList(req *wire.Request) (any, error) {
	children, err := s.tree.List(req.Path)
	if err != nil {
		return nil, err
	}
	return &wire.ListPayload{Children: children}, nil
}

func (s *Server) handleCreate(req *wire.Request) (any, error) {
	var p wire.CreatePayload
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	if !p.Value.IsValid() {
		return nil, fmt.Errorf("%w: missing initial value", ErrInvalidRequest)
	}
	meta := &property.Metadata{Access: p.Access, Unit: p.Unit, Description: p.Description}
	h, err := s.tree.CreateNode(req.Path, p.Value, createCoercer(&p), meta)
	if err != nil {
		return nil, err
	}
	return valuePayload(h)
}

// createCoercer builds the coercer for a remotely created node.
func createCoercer(p *wire.CreatePayload) property.Coercer {
	var cs []property.Coercer
	if p.Min != nil || p.Max != nil {
		lo, hi := math.Inf(-1), math.Inf(1)
		if p.Min != nil {
			lo = *p.Min
		}
		if p.Max != nil {
			hi = *p.Max
		}
		if p.Clip {
			cs = append(cs, property.Clip(lo, hi))
		} else {
			cs = append(cs, property.Range(lo, hi))
		}
	}
	if len(p.Choices) > 0 {
		cs = append(cs, property.OneOf(p.Choices...))
	}
	if len(cs) == 0 {
		return nil
	}
	return property.Chain(cs...)
}

func (s *Server) handleSubscribe(owner string, req *wire.Request) (any, error) {
	var p wire.SubscribePayload
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	minInterval := time.Duration(p.MinInterval) * time.Millisecond
	maxInterval := subscription.DefaultMaxInterval
	if p.MaxInterval > 0 {
		maxInterval = time.Duration(p.MaxInterval) * time.Millisecond
	}

	prefix, err := s.tree.Canonical(req.Path)
	if err != nil {
		return nil, err
	}
	infos, err := s.tree.Nodes(prefix)
	if err != nil {
		return nil, err
	}
	current := make(map[string]property.Value, len(infos))
	for _, info := range infos {
		current[info.Path] = info.Value
	}

	id, err := s.subs.Subscribe(owner, prefix, minInterval, maxInterval, current)
	if err != nil {
		return nil, err
	}
	s.watches.add(id, infos)

	s.logger.Debug("subscription created",
		slog.String("conn", owner),
		slog.Uint64("id", uint64(id)),
		slog.String("prefix", prefix),
		slog.Int("nodes", len(infos)))
	return &wire.SubscribeResponsePayload{SubscriptionID: id, CurrentValues: current}, nil
}

func (s *Server) handleUnsubscribe(owner string, req *wire.Request) error {
	var p wire.UnsubscribePayload
	if err := decode(req, &p); err != nil {
		return err
	}
	sub, err := s.subs.Get(p.SubscriptionID)
	if err != nil {
		return err
	}
	if sub.Owner != owner {
		return fmt.Errorf("%w: %d", subscription.ErrSubscriptionNotFound, p.SubscriptionID)
	}
	if err := s.subs.Unsubscribe(p.SubscriptionID); err != nil {
		return err
	}
	s.watches.remove(p.SubscriptionID)
	return nil
}

func (s *Server) handleComponents() (any, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: no component registry", ErrInternal)
	}
	comps := s.registry.Components()
	out := &wire.ComponentsPayload{Components: make([]wire.ComponentInfo, 0, len(comps))}
	for _, c := range comps {
		out.Components = append(out.Components, componentInfo(c))
	}
	return out, nil
}

func (s *Server) handleLookup(req *wire.Request) (any, error) {
	id, err := s.componentID(req)
	if err != nil {
		return nil, err
	}
	c, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	info := componentInfo(c)
	return &info, nil
}

func (s *Server) handleUnregister(req *wire.Request) error {
	id, err := s.componentID(req)
	if err != nil {
		return err
	}
	return s.registry.Unregister(id)
}

func (s *Server) componentID(req *wire.Request) (string, error) {
	if s.registry == nil {
		return "", fmt.Errorf("%w: no component registry", ErrInternal)
	}
	var p wire.ComponentPayload
	if err := decode(req, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", fmt.Errorf("%w: missing component id", ErrInvalidRequest)
	}
	return p.ID, nil
}

func (s *Server) handleSnapshot(req *wire.Request) (any, error) {
	prefix, err := s.tree.Canonical(req.Path)
	if err != nil {
		return nil, err
	}
	infos, err := s.tree.Nodes(prefix)
	if err != nil {
		return nil, err
	}
	out := &wire.SnapshotPayload{Nodes: make([]wire.NodeInfo, 0, len(infos))}
	for _, info := range infos {
		out.Nodes = append(out.Nodes, nodeInfo(info))
	}
	root := tree.MustParsePath(prefix)
	for alias, target := range s.tree.Aliases() {
		if tree.MustParsePath(target).HasPrefix(root) {
			if out.Aliases == nil {
				out.Aliases = make(map[string]string)
			}
			out.Aliases[alias] = target
		}
	}
	return out, nil
}

// deliver routes a notification to the connection that owns it.
func (s *Server) deliver(n subscription.Notification) {
	notif := n.Wire()

	s.mu.RLock()
	conn := s.conns[n.Owner]
	handler := s.handler
	s.mu.RUnlock()

	if handler != nil {
		handler(n.Owner, notif)
	}
	if conn == nil {
		return
	}
	data, err := wire.EncodeNotification(notif)
	if err != nil {
		s.logger.Error("failed to encode notification", slog.Any("error", err))
		return
	}
	id := notif.SubscriptionID
	s.logMessage(n.Owner, log.DirectionOut, &log.MessageEvent{
		Type:           log.MessageTypeNotification,
		SubscriptionID: &id,
	})
	if err := conn.Send(data); err != nil {
		s.logger.Debug("failed to send notification", slog.String("conn", n.Owner), slog.Any("error", err))
	}
}

func (s *Server) ownedSubscriptions(owner string) []uint32 {
	s.watches.mu.Lock()
	defer s.watches.mu.Unlock()
	var ids []uint32
	for id := range s.watches.bySubID {
		if sub, err := s.subs.Get(id); err == nil && sub.Owner == owner {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Server) logMessage(owner string, dir log.Direction, msg *log.MessageEvent) {
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: owner,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message:   msg,
	})
}

func decode(req *wire.Request, v any) error {
	if err := req.DecodePayload(v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidRequest, req.Operation, err)
	}
	return nil
}

func valuePayload(h *tree.Handle) (*wire.ValuePayload, error) {
	v, err := h.Get()
	if err != nil {
		return nil, err
	}
	d, err := h.Desired()
	if err != nil {
		return nil, err
	}
	return &wire.ValuePayload{Value: v, Desired: d}, nil
}

func nodeInfo(info tree.NodeInfo) wire.NodeInfo {
	return wire.NodeInfo{
		Path:        info.Path,
		Kind:        info.Kind,
		Value:       info.Value,
		Desired:     info.Desired,
		Access:      info.Access,
		Unit:        info.Unit,
		Description: info.Description,
	}
}

func componentInfo(c component.Component) wire.ComponentInfo {
	return wire.ComponentInfo{
		ID:         c.ID,
		Root:       c.Root,
		Kind:       c.Kind,
		InstanceID: c.InstanceID,
	}
}

func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	resp, err := wire.NewResponse(msgID, status, &wire.ErrorPayload{Message: message})
	if err != nil {
		return &wire.Response{MessageID: msgID, Status: status}
	}
	return resp
}
