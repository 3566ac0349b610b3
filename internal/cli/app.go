package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/campushub/campushub/internal/config"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/notifier"
	"github.com/campushub/campushub/internal/storage"
)

func noopClose() error { return nil }

// openBlob builds the storage backend cfg selects, wrapped in encryption
// when a key is configured.
func openBlob(ctx context.Context, cfg *config.Config) (storage.Blob, func() error, error) {
	var (
		blob    storage.Blob
		closeFn = noopClose
	)

	switch cfg.Storage {
	case config.StorageFile:
		fb, err := storage.NewFileBlob(cfg.DataDir, "")
		if err != nil {
			return nil, nil, fmt.Errorf("initializing storage: %w", err)
		}
		logger.Debug("using file storage", logger.Fields{"path": fb.Path()})
		blob = fb

	case config.StorageMemory:
		blob = storage.NewMemoryBlob()

	case config.StorageGist:
		gb, err := storage.NewGistBlob(cfg.GistID, cfg.GitHubToken)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing storage: %w", err)
		}
		blob = gb

	case config.StoragePostgres:
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing storage: %w", err)
		}
		pb := storage.NewPostgresBlob(db, "")
		if err := pb.EnsureSchema(ctx); err != nil {
			db.Close() // nolint:errcheck
			return nil, nil, err
		}
		blob = pb
		closeFn = db.Close

	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	if cfg.EncryptionKey != "" {
		logger.Debug("event collection encryption enabled", nil)
	}
	return storage.NewEncryptedBlob(blob, cfg.EncryptionKey), closeFn, nil
}

// buildNotifiers picks the registration notifier and event announcers cfg
// enables. Nothing configured means Nop for both.
func buildNotifiers(cfg *config.Config, dryRunOut io.Writer) (notifier.Notifier, notifier.Announcer, func() error, error) {
	if cfg.NotifyDryRun {
		dr := notifier.NewDryRunNotifier(dryRunOut)
		return dr, dr, noopClose, nil
	}

	var (
		notifiers  notifier.Notifiers
		announcers notifier.Announcers
		closeFn    = noopClose
	)

	if cfg.RabbitMQURL != "" {
		rn, err := notifier.NewRabbitNotifier(cfg.RabbitMQURL, cfg.Exchange)
		if err != nil {
			return nil, nil, nil, err
		}
		notifiers = append(notifiers, rn)
		announcers = append(announcers, rn)
		closeFn = rn.Close
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			closeFn() // nolint:errcheck
			return nil, nil, nil, err
		}
		notifiers = append(notifiers, tg)
		announcers = append(announcers, tg)
	}

	if cfg.Twitter.Complete() {
		ta, err := notifier.NewTwitterAnnouncer(cfg.Twitter)
		if err != nil {
			closeFn() // nolint:errcheck
			return nil, nil, nil, err
		}
		announcers = append(announcers, ta)
	}

	var (
		n notifier.Notifier  = notifier.Nop{}
		a notifier.Announcer = notifier.Nop{}
	)
	if len(notifiers) > 0 {
		n = notifiers
	}
	if len(announcers) > 0 {
		a = announcers
	}
	return n, a, closeFn, nil
}
