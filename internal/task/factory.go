package task

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/store"
)

// KindsConfig tunes the built-in task kinds.
type KindsConfig struct {
	PollInterval  time.Duration
	StableFor     time.Duration
	HistoryWindow int
}

// DefaultKindsConfig returns the upload timings and history window used
// when nothing else is configured.
func DefaultKindsConfig() KindsConfig {
	return KindsConfig{
		PollInterval:  DefaultPollInterval,
		StableFor:     DefaultStableFor,
		HistoryWindow: DefaultHistoryWindow,
	}
}

// Factory builds ready-to-dispatch handles for every task kind.
type Factory struct {
	tasks    store.TaskStore
	files    store.FileStore
	messages store.MessageStore
	events   events.Publisher
	ingester inference.Ingester
	answerer inference.Answerer
	config   KindsConfig
	logger   *slog.Logger
}

// NewFactory creates a Factory. Zero timings in config fall back to the
// defaults.
func NewFactory(
	tasks store.TaskStore,
	files store.FileStore,
	messages store.MessageStore,
	publisher events.Publisher,
	ingester inference.Ingester,
	answerer inference.Answerer,
	config KindsConfig,
	logger *slog.Logger,
) (*Factory, error) {
	rec := Recorder{Tasks: tasks, Files: files, Messages: messages, Events: publisher, Logger: logger}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if ingester == nil {
		return nil, ErrNilIngester
	}
	if answerer == nil {
		return nil, ErrNilAnswerer
	}

	defaults := DefaultKindsConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.StableFor <= 0 {
		config.StableFor = defaults.StableFor
	}
	if config.HistoryWindow < 0 {
		config.HistoryWindow = defaults.HistoryWindow
	}

	return &Factory{
		tasks:    tasks,
		files:    files,
		messages: messages,
		events:   publisher,
		ingester: ingester,
		answerer: answerer,
		config:   config,
		logger:   logger.With("component", "task_factory"),
	}, nil
}

func (f *Factory) recorder() Recorder {
	return Recorder{
		Tasks:    f.tasks,
		Files:    f.files,
		Messages: f.messages,
		Events:   f.events,
		Logger:   f.logger,
	}
}

// UploadFile returns a handle that tracks the upload of path, relative to
// the space directory, until its size settles.
func (f *Factory) UploadFile(path string) (*Instance[UploadFileState], error) {
	return NewInstance[UploadFileState](&UploadFileTask{
		input:        UploadFileInput{Path: path},
		tasks:        f.tasks,
		files:        f.files,
		events:       f.events,
		pollInterval: f.config.PollInterval,
		stableFor:    f.config.StableFor,
		now:          time.Now,
		stat:         statSize,
	}, f.recorder())
}

// LearnFile returns a handle that ingests a registered file.
func (f *Factory) LearnFile(fileID uuid.UUID) (*Instance[LearnFileState], error) {
	return NewInstance[LearnFileState](&LearnFileTask{
		input:    LearnFileInput{FileID: fileID},
		tasks:    f.tasks,
		files:    f.files,
		events:   f.events,
		ingester: f.ingester,
	}, f.recorder())
}

// Reply returns a handle that answers the user message messageID.
func (f *Factory) Reply(messageID uuid.UUID, text string) (*Instance[ReplyState], error) {
	return NewInstance[ReplyState](&ReplyTask{
		input:         ReplyInput{MessageID: messageID, MessageText: text},
		tasks:         f.tasks,
		messages:      f.messages,
		events:        f.events,
		answerer:      f.answerer,
		historyWindow: f.config.HistoryWindow,
	}, f.recorder())
}
