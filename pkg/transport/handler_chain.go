package transport

import (
	"errors"
	"fmt"

	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"go.uber.org/zap"
)

// ErrDropped is returned by a handler that consumed or rejected a message.
// The chain stops and the message is discarded without being treated as a
// failure.
var ErrDropped = errors.New("message dropped")

// Handler observes or filters messages on their way in and out.
type Handler interface {
	OnReceive(msg packet.Message, from Address) error
	OnSend(msg packet.Message, to Address) error
}

// HandlerChain runs handlers in order.
type HandlerChain struct {
	name     string
	handlers []Handler
}

// NewHandlerChain creates a new handler chain
func NewHandlerChain(name string, handlers ...Handler) *HandlerChain {
	return &HandlerChain{
		name:     name,
		handlers: handlers,
	}
}

func (hc *HandlerChain) AddHandler(handler Handler) {
	hc.handlers = append(hc.handlers, handler)
}

// RemoveHandler removes a handler from the chain
func (hc *HandlerChain) RemoveHandler(handler Handler) bool {
	for i, h := range hc.handlers {
		if h == handler {
			hc.handlers = append(hc.handlers[:i], hc.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// GetHandlers returns a copy of the handlers slice
func (hc *HandlerChain) GetHandlers() []Handler {
	handlers := make([]Handler, len(hc.handlers))
	copy(handlers, hc.handlers)
	return handlers
}

// OnReceive processes a message through the receive chain
func (hc *HandlerChain) OnReceive(msg packet.Message, from Address) error {
	for i, handler := range hc.handlers {
		if err := handler.OnReceive(msg, from); err != nil {
			return hc.fail("receive", i, err)
		}
	}
	return nil
}

// OnSend processes a message through the send chain
func (hc *HandlerChain) OnSend(msg packet.Message, to Address) error {
	for i, handler := range hc.handlers {
		if err := handler.OnSend(msg, to); err != nil {
			return hc.fail("send", i, err)
		}
	}
	return nil
}

func (hc *HandlerChain) fail(dir string, i int, err error) error {
	if errors.Is(err, ErrDropped) {
		logging.Debug("Handler dropped message",
			zap.String("chainName", hc.name),
			zap.String("direction", dir),
			zap.Int("handlerIndex", i))
	} else {
		logging.Error("Handler error in "+dir+" chain",
			zap.String("chainName", hc.name),
			zap.Int("handlerIndex", i),
			zap.Error(err))
	}
	return fmt.Errorf("handler %d in chain %s failed: %w", i, hc.name, err)
}
