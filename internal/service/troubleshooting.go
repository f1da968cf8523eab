package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/recall"
)

var ErrBotNotFound = errors.New("bot not found")

// BotProvider is the read side of the provider client.
type BotProvider interface {
	GetBot(ctx context.Context, botID string) (*recall.Bot, error)
	GetScreenshots(ctx context.Context, botID string) ([]recall.Screenshot, error)
}

type BotStatus struct {
	BotID             string               `json:"bot_id"`
	Status            string               `json:"status"`
	StatusChanges     []model.StatusChange `json:"status_changes"`
	RecordingCount    int                  `json:"recording_count"`
	LatestRecordingID string               `json:"latest_recording_id,omitempty"`
}

type Explorer struct {
	BotID  string `json:"bot_id"`
	Region string `json:"region"`
	URL    string `json:"url"`
}

// TroubleshootReport bundles everything known about a bot. Each part is
// fetched independently; a part that failed is nil and its error is listed
// under Errors by part name.
type TroubleshootReport struct {
	BotID       string               `json:"bot_id"`
	Status      *BotStatus           `json:"status,omitempty"`
	Diagnosis   *diagnosis.Diagnosis `json:"diagnosis,omitempty"`
	Screenshots []recall.Screenshot  `json:"screenshots,omitempty"`
	Guide       *diagnosis.Guide     `json:"guide,omitempty"`
	Explorer    Explorer             `json:"explorer"`
	Errors      map[string]string    `json:"errors,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type TroubleshootingService interface {
	Status(ctx context.Context, botID string) (*BotStatus, error)
	Diagnose(ctx context.Context, botID string) (*diagnosis.Diagnosis, error)
	Screenshots(ctx context.Context, botID string) ([]recall.Screenshot, error)
	Explorer(botID string) Explorer
	Troubleshoot(ctx context.Context, botID string) *TroubleshootReport
	Guide(errorCode, subCode string) diagnosis.Guide
}

type troubleshootingService struct {
	provider BotProvider
	engine   *diagnosis.Engine
}

func NewTroubleshootingService(provider BotProvider, engine *diagnosis.Engine) TroubleshootingService {
	return &troubleshootingService{provider: provider, engine: engine}
}

func (s *troubleshootingService) Status(ctx context.Context, botID string) (*BotStatus, error) {
	bot, err := s.bot(ctx, botID)
	if err != nil {
		return nil, err
	}
	return &BotStatus{
		BotID:             bot.ID,
		Status:            bot.Status(),
		StatusChanges:     bot.History(),
		RecordingCount:    len(bot.Recordings),
		LatestRecordingID: bot.LatestRecordingID(),
	}, nil
}

func (s *troubleshootingService) Diagnose(ctx context.Context, botID string) (*diagnosis.Diagnosis, error) {
	bot, err := s.bot(ctx, botID)
	if err != nil {
		return nil, err
	}
	d := s.engine.Diagnose(bot.ToModel())
	return &d, nil
}

func (s *troubleshootingService) Screenshots(ctx context.Context, botID string) ([]recall.Screenshot, error) {
	shots, err := s.provider.GetScreenshots(ctx, botID)
	if err != nil {
		return nil, providerErr(botID, err)
	}
	return shots, nil
}

func (s *troubleshootingService) Explorer(botID string) Explorer {
	return Explorer{
		BotID:  botID,
		Region: s.engine.Region(),
		URL:    diagnosis.InspectionURL(s.engine.Region(), botID),
	}
}

func (s *troubleshootingService) Guide(errorCode, subCode string) diagnosis.Guide {
	return diagnosis.LookupGuide(errorCode, subCode)
}

func (s *troubleshootingService) Troubleshoot(ctx context.Context, botID string) *TroubleshootReport {
	report := &TroubleshootReport{
		BotID:       botID,
		Explorer:    s.Explorer(botID),
		GeneratedAt: time.Now().UTC(),
	}

	parts := [...]struct {
		name string
		run  func() error
	}{
		{"status", func() (err error) { report.Status, err = s.Status(ctx, botID); return err }},
		{"diagnosis", func() (err error) { report.Diagnosis, err = s.Diagnose(ctx, botID); return err }},
		{"screenshots", func() (err error) { report.Screenshots, err = s.Screenshots(ctx, botID); return err }},
	}

	// A plain group: one failed part must not cancel the others.
	var g errgroup.Group
	var partErrs [len(parts)]error
	for i, part := range parts {
		g.Go(func() error {
			if err := part.run(); err != nil {
				partErrs[i] = err
				return fmt.Errorf("%s: %w", part.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Errors = make(map[string]string)
		for i, part := range parts {
			if partErrs[i] != nil {
				report.Errors[part.name] = partErrs[i].Error()
			}
		}
		slog.WarnContext(ctx, "troubleshooting report incomplete",
			"bot_id", botID,
			"failed_parts", len(report.Errors),
			"error", err)
	}

	if report.Diagnosis != nil {
		if issue, ok := report.Diagnosis.Fatal(); ok {
			subCode := ""
			if issue.SubCode != nil {
				subCode = *issue.SubCode
			}
			guide := diagnosis.LookupGuide(issue.Code, subCode)
			report.Guide = &guide
		}
	}
	return report
}

func (s *troubleshootingService) bot(ctx context.Context, botID string) (*recall.Bot, error) {
	bot, err := s.provider.GetBot(ctx, botID)
	if err != nil {
		return nil, providerErr(botID, err)
	}
	return bot, nil
}

func providerErr(botID string, err error) error {
	if errors.Is(err, recall.ErrNotFound) {
		return fmt.Errorf("bot %s: %w", botID, ErrBotNotFound)
	}
	return fmt.Errorf("bot %s: %w", botID, err)
}
