// Package session - Konkrete Sessions fuer Training, Validierung und Test
//
// Der Laufzeittyp einer Session legt ihren Modus fest: *Train, *Validate
// und *Test liefern jeweils einen festen task.Mode.
package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mayo-ml/mayo/config"
	"github.com/mayo-ml/mayo/estimate"
	"github.com/mayo-ml/mayo/task"
)

// base implementiert die gemeinsamen Felder aller Sessions
type base struct {
	id        uuid.UUID
	config    *config.Config
	estimator *estimate.Memory
}

func newBase(cfg *config.Config) base {
	if cfg == nil {
		cfg = config.Default()
	}
	return base{id: uuid.New(), config: cfg, estimator: estimate.NewMemory()}
}

// ID identifiziert die Session in Logs
func (b *base) ID() uuid.UUID {
	return b.id
}

func (b *base) Config() *config.Config {
	return b.config
}

func (b *base) Estimator() estimate.Estimator {
	return b.estimator
}

// Memory liefert den Estimator mit seinen gesammelten Werten
func (b *base) Memory() *estimate.Memory {
	return b.estimator
}

// Train ist eine Trainings-Session
type Train struct{ base }

// Validate ist eine Validierungs-Session; ihre Estimates behalten alle Werte
type Validate struct{ base }

// Test ist eine Test-Session; sie liest Eingaben aus
// system.search_path.run.inputs
type Test struct{ base }

func (*Train) Mode() task.Mode    { return task.ModeTrain }
func (*Validate) Mode() task.Mode { return task.ModeValidate }
func (*Test) Mode() task.Mode     { return task.ModeTest }

// Session ist task.Session mit Zugriff auf die gesammelten Werte
type Session interface {
	task.Session
	ID() uuid.UUID
	Memory() *estimate.Memory
}

// New erstellt die Session fuer mode und validiert die Konfiguration
func New(mode task.Mode, cfg *config.Config) (Session, error) {
	b := newBase(cfg)

	var s Session
	switch mode {
	case task.ModeTrain:
		s = &Train{b}
	case task.ModeValidate:
		s = &Validate{b}
	case task.ModeTest:
		s = &Test{b}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	if err := b.config.Validate(mode == task.ModeTest); err != nil {
		return nil, err
	}
	return s, nil
}
