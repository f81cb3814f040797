package client

import "go.uber.org/zap"

// ToastKind tells success and failure notifications apart
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient user-facing notification
type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
}

// Notifier shows toasts to the user
type Notifier interface {
	Notify(toast Toast)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(toast Toast) {
	f(toast)
}

// LogNotifier writes toasts to a logger, for headless clients
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a notifier backed by log
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(toast Toast) {
	fields := []zap.Field{zap.String("title", toast.Title), zap.String("message", toast.Message)}
	if toast.Kind == ToastError {
		n.log.Warn("toast", fields...)
		return
	}
	n.log.Info("toast", fields...)
}
