package session

import (
	"fmt"
	"image"
	"path/filepath"
	"time"
)

// interruptLocked runs the prologue (the guarded transition to next) and then
// the epilogue, inline when nothing is in flight or queued behind the running
// generation otherwise. Callers hold s.mu; the epilogue runs with s.mu held.
func (s *Session) interruptLocked(op string, allowed func(State) bool, next State, epilogue func()) {
	prev, ok := s.state.Transition(func(cur State) bool {
		return allowed(cur) && planInterrupt(cur) != planIllegal
	}, next)
	if !ok {
		panic(contractViolation(op, prev))
	}
	s.stateChanged(prev, next)
	plan := planInterrupt(prev)
	requestsTotal.WithLabelValues(op, plan.String()).Inc()
	s.log.Debug().Str("op", op).Str("from", prev.String()).Str("plan", plan.String()).Msg("interrupt")
	switch plan {
	case planRunInline:
		epilogue()
	case planEnqueue:
		// Runs after the in-flight generation observes the new state and exits.
		s.submit(op, func() { s.post(epilogue) })
	}
}

// RequestReset clears the conversation. Requires Resettable.
func (s *Session) RequestReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interruptLocked("reset", State.Resettable, StateResetting, s.resetLocked)
}

func (s *Session) resetLocked() {
	useVision := s.model.UseVision
	s.submit("reset", func() {
		s.eng.ResetSession()
		if useVision {
			s.eng.ResetVisionSession()
		}
		s.post(func() {
			s.clearHistoryLocked()
			if useVision {
				s.appendMessageLocked(RoleBot, msgUploadImage)
				s.setState(StatePendingImageUpload)
				return
			}
			s.setState(StateReady)
		})
	})
}

// RequestTerminate unloads everything and clears the model config. callback,
// if non-nil, is invoked exactly once from the caller context after the
// session is back in Ready. Requires Interruptible.
func (s *Session) RequestTerminate(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interruptLocked("terminate", State.Interruptible, StateTerminating, func() {
		s.terminateLocked(callback)
	})
}

func (s *Session) terminateLocked(callback func()) {
	useVision := s.model.UseVision
	s.submit("terminate", func() {
		if useVision {
			s.eng.UnloadVisionAdapter()
		}
		s.eng.UnloadModel()
		s.box.Post(func() {
			s.mu.Lock()
			s.clearHistoryLocked()
			s.model = Model{}
			s.loadTime = nil
			s.setState(StateReady)
			s.mu.Unlock()
			s.publish("terminated", nil)
			if callback != nil {
				callback()
			}
		})
	})
}

// RequestReload switches the session to model m. It is a no-op when m is the
// current model, unless the last attempt to load it failed. Requires
// Interruptible otherwise.
func (s *Session) RequestReload(m Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model.ID == m.ID && s.state.Load() != StateFailed {
		return
	}
	s.interruptLocked("reload", State.Interruptible, StateReloading, func() {
		s.reloadLocked(m)
	})
}

func (s *Session) reloadLocked(m Model) {
	s.clearHistoryLocked()
	prevVision := s.model.UseVision
	m.UseVision = s.cfg.usesVision(m.DisplayName)
	s.model = m
	s.submit("reload", func() {
		s.post(func() { s.appendMessageLocked(RoleBot, msgInitializing) })

		start := s.cfg.Now()
		if prevVision {
			s.eng.UnloadVisionAdapter()
		}
		s.eng.UnloadModel()

		avail := s.eng.AvailableResourceBytes()
		if avail < m.EstimatedBytes {
			s.failReload("resources", insufficientResourcesText(m.EstimatedBytes))
			s.log.Warn().Str("model", m.ID).Int64("required", m.EstimatedBytes).Int64("available", avail).Msg("reload refused")
			return
		}
		if err := s.loadModel(m); err != nil {
			s.failReload("load", fmt.Sprintf("Failed to initialize %s: %v", m.DisplayName, err))
			s.log.Error().Err(err).Str("model", m.ID).Msg("reload failed")
			return
		}
		lt := LoadTiming{Start: start, Duration: s.cfg.Now().Sub(start)}
		modelLoadDuration.Observe(lt.Duration.Seconds())
		s.log.Info().Str("model", m.ID).Bool("vision", m.UseVision).Dur("dur", lt.Duration).Msg("model loaded")

		s.post(func() {
			s.loadTime = &lt
			if m.UseVision {
				s.updateLastLocked(RoleBot, msgUploadImage)
				s.setState(StatePendingImageUpload)
			} else {
				s.updateLastLocked(RoleBot, msgReadyToChat)
				s.setState(StateReady)
			}
			s.publish("reload_done", map[string]any{"model": m.ID, "vision": m.UseVision, "duration": lt.Duration.Seconds()})
		})
	})
}

// loadModel runs on the worker. Vision models load the auxiliary language
// model from the adapter's directory first, then the adapter itself.
func (s *Session) loadModel(m Model) error {
	if !m.UseVision {
		return s.eng.LoadModel(m.Lib, m.Path, "")
	}
	auxPath := filepath.Join(filepath.Dir(m.Path), s.cfg.AuxModelLib)
	if err := s.eng.LoadModel(s.cfg.AuxModelLib, auxPath, s.cfg.AuxAppConfig); err != nil {
		return err
	}
	return s.eng.LoadVisionAdapter(m.Lib, m.Path)
}

// failReload runs on the worker; it surfaces text and parks the session in Failed.
func (s *Session) failReload(reason, text string) {
	reloadFailuresTotal.WithLabelValues(reason).Inc()
	s.post(func() {
		s.appendMessageLocked(RoleBot, text)
		s.setState(StateFailed)
		s.publish("reload_failed", map[string]any{"reason": reason})
	})
}

func insufficientResourcesText(required int64) string {
	return fmt.Sprintf("Sorry, the system cannot provide %.1fMB VRAM as requested to the app, "+
		"so we cannot initialize this model on this device.", float64(required)/float64(1<<20))
}

// RequestGenerate starts a generation for prompt. It appends the user message
// and an empty bot message that is updated as output streams in. Requires Chattable.
func (s *Session) RequestGenerate(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.state.Transition(State.Chattable, StateGenerating); !ok {
		panic(contractViolation("generate", prev))
	}
	s.stateChanged(StateReady, StateGenerating)
	requestsTotal.WithLabelValues("generate", "").Inc()
	s.appendMessageLocked(RoleUser, prompt)
	s.appendMessageLocked(RoleBot, "")
	useVision := s.model.UseVision
	s.submit("generate", func() { s.generate(prompt, useVision) })
}

// generate runs on the worker. It polls the state after every decode step
// and leaves without touching the state once it is no longer Generating.
func (s *Session) generate(prompt string, useVision bool) {
	start := time.Now()
	s.eng.Prefill(prompt)
	steps := 0
	for !s.eng.Stopped() {
		s.eng.DecodeStep()
		steps++
		decodeStepsTotal.Inc()
		if text, ok := s.eng.Message(); ok {
			s.post(func() { s.updateLastLocked(RoleBot, text) })
		}
		if s.state.Load() != StateGenerating {
			break
		}
	}
	generationDuration.Observe(time.Since(start).Seconds())
	if s.state.Load() != StateGenerating {
		generationsTotal.WithLabelValues("interrupted").Inc()
		s.log.Debug().Int("steps", steps).Msg("generation interrupted")
		return
	}
	stats, hasStats := s.eng.RuntimeStatsText(useVision)
	s.post(func() {
		if !s.casState(StateGenerating, StateReady) {
			generationsTotal.WithLabelValues("interrupted").Inc()
			return
		}
		generationsTotal.WithLabelValues("completed").Inc()
		if hasStats {
			s.infoText = stats
		}
		s.publish("generation_done", map[string]any{"steps": steps})
	})
}

// RequestProcessImage feeds img to the vision model and unblocks chat.
// Requires Uploadable.
func (s *Session) RequestProcessImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.state.Transition(State.Uploadable, StateProcessingImage); !ok {
		panic(contractViolation("process_image", prev))
	}
	s.stateChanged(StatePendingImageUpload, StateProcessingImage)
	requestsTotal.WithLabelValues("process_image", "").Inc()
	size := s.cfg.ImageSize
	prefix, suffix := s.cfg.ImagePrefix, s.cfg.ImageSuffix
	s.submit("process_image", func() {
		s.post(func() { s.updateLastLocked(RoleBot, msgProcessingImg) })
		s.eng.PrefillImage(resizeImage(img, size, size), prefix, suffix)
		s.post(func() {
			s.updateLastLocked(RoleBot, msgReadyToChat)
			s.casState(StateProcessingImage, StateReady)
		})
	})
}
