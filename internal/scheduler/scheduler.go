package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/notifier"
	"EtfVolatility/internal/stats"
	"EtfVolatility/internal/storage"
	"EtfVolatility/internal/updater"
)

// ErrBusy is returned when an update is requested while one is running.
var ErrBusy = errors.New("update already running")

// Sender delivers formatted messages. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler runs the daily update batch on a cron schedule and answers commands.
type Scheduler struct {
	Cron        *cron.Cron
	Updater     *updater.Updater
	Store       storage.Store
	Instruments []model.Instrument
	Notifier    Sender // nil disables notifications
	Ctx         context.Context

	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, u *updater.Updater, store storage.Store, instruments []model.Instrument, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Updater:     u,
		Store:       store,
		Instruments: instruments,
		Notifier:    sender,
		Ctx:         ctx,
		now:         time.Now,
	}
}

// RegisterAll registers the daily update task.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one update batch immediately and returns its reports.
// Concurrent calls return ErrBusy.
func (s *Scheduler) RunNow() ([]model.StatusReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.Updater.UpdateAll(s.Ctx, s.Instruments)
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running daily update")
	reports, err := s.RunNow()
	if err != nil {
		log.Printf("[ERROR] daily update: %v", err)
		s.trySend(fmt.Sprintf("❌ 每日更新失败: %v", err))
		return
	}
	s.trySend(notifier.FormatUpdateReport(reports, s.now()))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return usage()
	}
	switch fields[0] {
	case "/update", "更新":
		go s.dailyTask()
		return "⏳ 更新已开始"
	case "/stats", "统计":
		if len(fields) < 2 {
			return "用法: /stats <代码>"
		}
		inst, ok := s.lookup(fields[1])
		if !ok {
			return fmt.Sprintf("未跟踪的标的: %s", fields[1])
		}
		sum, err := stats.Build(s.Store, inst)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Sprintf("%s 暂无数据", inst.Code)
		}
		if err != nil {
			log.Printf("[ERROR] stats %s: %v", inst.Code, err)
			return fmt.Sprintf("❌ 读取 %s 失败", inst.Code)
		}
		return notifier.FormatStats(sum)
	case "/list", "列表":
		var b strings.Builder
		for _, inst := range s.Instruments {
			b.WriteString(fmt.Sprintf("%s %s\n", inst.Code, inst.Name))
		}
		return b.String()
	default:
		return usage()
	}
}

func usage() string {
	return "可用命令:\n• /update 立即更新\n• /stats <代码> 最新波动率\n• /list 跟踪列表"
}

func (s *Scheduler) lookup(code string) (model.Instrument, bool) {
	code = strings.ToUpper(code)
	for _, inst := range s.Instruments {
		if inst.Code == code {
			return inst, true
		}
	}
	return model.Instrument{}, false
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
