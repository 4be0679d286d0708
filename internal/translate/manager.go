package translate

import (
	"sync"
	"time"

	"github.com/averyong/lingodesk/internal/config"
	"github.com/averyong/lingodesk/internal/domain"
)

// Manager owns one queue per project. Queues are explicit objects constructed
// on first use rather than a process-wide singleton, so independent projects
// can run jobs without stepping on each other and tests can build their own.
type Manager struct {
	invoker   BatchInvoker
	projector *Projector
	glossary  GlossarySource
	cfg       config.TranslateConfig

	mu     sync.Mutex
	queues map[string]*Queue
}

// NewManager creates a queue manager.
func NewManager(invoker BatchInvoker, projector *Projector, glossary GlossarySource, cfg config.TranslateConfig) *Manager {
	return &Manager{
		invoker:   invoker,
		projector: projector,
		glossary:  glossary,
		cfg:       cfg,
		queues:    make(map[string]*Queue),
	}
}

// ForProject returns the project's queue, creating it on first use. The
// queue's target languages and glossary version follow the project record;
// they are refreshed between jobs but never while one is running.
func (m *Manager) ForProject(project *domain.Project) *Queue {
	qcfg := QueueConfig{
		BatchSize:       m.cfg.BatchSize,
		Throttle:        time.Duration(m.cfg.ThrottleMs) * time.Millisecond,
		TargetLanguages: project.TargetLanguages,
		GlossaryVersion: project.GlossaryVersion,
	}
	if len(qcfg.TargetLanguages) == 0 {
		qcfg.TargetLanguages = m.cfg.TargetLanguages
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[project.ID]; ok {
		q.setConfig(qcfg)
		return q
	}
	q := NewQueue(project.ID, m.invoker, m.projector, m.glossary, qcfg)
	m.queues[project.ID] = q
	return q
}

// Get returns the queue for a project if one has been created.
func (m *Manager) Get(projectID string) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[projectID]
	return q, ok
}
