package authserver

import (
	"context"
	"sync"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/identifier"
	"go.uber.org/zap"
)

// Delivery is one code to send.
type Delivery struct {
	VerificationID string
	Identifier     string
	Method         goAuthFlow.Method
	Purpose        goAuthFlow.Variant
	Region         string
	Code           string
}

// Sender delivers codes by email or SMS.
type Sender interface {
	SendOTP(ctx context.Context, d Delivery) error
}

// CodeLookup is implemented by senders that can echo codes back in
// development.
type CodeLookup interface {
	Code(verificationID string) (string, bool)
}

// LogSender writes codes to the log instead of delivering them. Development only.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) SendOTP(_ context.Context, d Delivery) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("otp issued",
		zap.String("verification_id", d.VerificationID),
		zap.String("identifier", identifier.Mask(d.Identifier)),
		zap.Stringer("method", d.Method),
		zap.Stringer("purpose", d.Purpose),
		zap.String("code", d.Code),
	)
	return nil
}

// MemorySender keeps every delivery in memory, keyed by verification id.
type MemorySender struct {
	mu         sync.Mutex
	deliveries map[string]Delivery
	last       Delivery
}

func NewMemorySender() *MemorySender {
	return &MemorySender{deliveries: make(map[string]Delivery)}
}

func (s *MemorySender) SendOTP(_ context.Context, d Delivery) error {
	s.mu.Lock()
	s.deliveries[d.VerificationID] = d
	s.last = d
	s.mu.Unlock()
	return nil
}

func (s *MemorySender) Code(verificationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[verificationID]
	return d.Code, ok
}

// Last returns the most recent delivery.
func (s *MemorySender) Last() Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// MultiSender sends through every sender in order and stops at the first error.
type MultiSender []Sender

func (m MultiSender) SendOTP(ctx context.Context, d Delivery) error {
	for _, s := range m {
		if err := s.SendOTP(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Code asks each member implementing [CodeLookup] in order.
func (m MultiSender) Code(verificationID string) (string, bool) {
	for _, s := range m {
		if lookup, ok := s.(CodeLookup); ok {
			if code, found := lookup.Code(verificationID); found {
				return code, true
			}
		}
	}
	return "", false
}
