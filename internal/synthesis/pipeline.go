package synthesis

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"golang.org/x/sync/singleflight"

	"persona/internal/capability"
	"persona/internal/genservice"
	"persona/internal/logging"
)

// ErrNotNeeded is returned when need detection concludes an existing
// capability already covers the request.
var ErrNotNeeded = errors.New("no new capability needed")

// ErrDisabled is returned when synthesis has been switched off in
// configuration; the coordinator then answers without a new tool.
var ErrDisabled = errors.New("capability synthesis is disabled")

// Pipeline runs the full synthesis sequence: need detection, name
// disambiguation, source generation, validation, persist, hot-load,
// and registration. Concurrent requests for the same capability are
// deduplicated so only one generation runs.
type Pipeline struct {
	registry  *capability.Registry
	ledger    *Ledger
	store     *Store
	loader    Loader
	detector  *Detector
	generator *Generator
	group     singleflight.Group
	now       func() time.Time
	disabled  bool
	retries   int
}

func NewPipeline(llm genservice.Client, registry *capability.Registry, ledger *Ledger, store *Store, loader Loader) *Pipeline {
	return &Pipeline{
		registry:  registry,
		ledger:    ledger,
		store:     store,
		loader:    loader,
		detector:  NewDetector(llm),
		generator: NewGenerator(llm),
		now:       time.Now,
		retries:   1,
	}
}

// SetEnabled switches synthesis on or off. When disabled, Synthesize
// returns ErrDisabled without calling the generation service.
func (p *Pipeline) SetEnabled(enabled bool) { p.disabled = !enabled }

// SetGenerationRetries sets how many regeneration attempts a
// missing-import load failure is allowed before the minimal fallback
// takes over. Values below zero are treated as zero.
func (p *Pipeline) SetGenerationRetries(n int) {
	if n < 0 {
		n = 0
	}
	p.retries = n
}

// Synthesize creates and registers a capability for the user's request
// and returns its final registered name. requestedName is the name the
// model asked for (it may be empty when synthesis is driven purely by
// the request text). Returns ErrNotNeeded when detection says an
// existing capability covers the need, or another error when no
// loadable capability could be produced.
func (p *Pipeline) Synthesize(ctx context.Context, userText, requestedName string) (string, error) {
	if p.disabled {
		return "", ErrDisabled
	}
	key := synthesisKey(userText, requestedName)
	v, err, shared := p.group.Do(key, func() (any, error) {
		return p.run(ctx, userText, requestedName)
	})
	if shared {
		logging.SynthesisDebug("synthesis for '%s' shared with a concurrent request", key)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// synthesisKey dedupes concurrent synthesis requests. Named requests
// share by name; unnamed ones must not share across different user
// texts, so they key on the text itself.
func synthesisKey(userText, requestedName string) string {
	if requestedName != "" {
		return requestedName
	}
	h := fnv.New64a()
	h.Write([]byte(userText))
	return fmt.Sprintf("~detect~%x", h.Sum64())
}

func (p *Pipeline) run(ctx context.Context, userText, requestedName string) (string, error) {
	spec := Preclassify(userText)
	if spec != nil {
		logging.SynthesisDebug("pre-classification matched, skipping detection")
	} else {
		var err error
		spec, err = p.detector.Detect(ctx, userText, p.registry.List())
		if err != nil {
			return "", err
		}
		if spec == nil {
			return "", ErrNotNeeded
		}
	}
	if spec.Name == "" {
		spec.Name = requestedName
	}
	if spec.Name == "" {
		return "", fmt.Errorf("synthesis has no capability name to work with")
	}

	// Classification may resolve the request to a capability that is
	// already registered (the model asked for a name it invented, but
	// the real one exists). Reuse it instead of regenerating.
	if p.registry.Has(spec.Name) {
		logging.Synthesis("reusing existing capability '%s'", spec.Name)
		return spec.Name, nil
	}

	spec.Name = DisambiguateName(spec.Name, p.ledger, p.now)

	source, err := p.generator.Generate(ctx, spec, nil)
	if err != nil {
		return "", err
	}
	if verr := ValidateSource(source, spec.Name); verr != nil {
		logging.SynthesisWarn("generated source for '%s' failed validation (%v), using fallback template", spec.Name, verr)
		source = FallbackSource(spec.Name, spec.Description)
	}

	cap, err := p.persistAndLoad(ctx, spec, source)
	if err != nil {
		return "", err
	}

	p.registry.Register(cap, capability.OriginSynthesized)
	logging.Synthesis("synthesized and registered capability '%s'", spec.Name)
	return spec.Name, nil
}

// persistAndLoad writes the source and hot-loads it. A missing-import
// failure earns a bounded number of regenerations with the offending
// imports forbidden; any other load failure swaps in the minimal
// fallback.
func (p *Pipeline) persistAndLoad(ctx context.Context, spec *Spec, source string) (capability.Capability, error) {
	if _, err := p.store.Save(spec.Name, source); err != nil {
		return nil, err
	}

	cap, err := p.loader.Load(source)
	if err == nil {
		return cap, nil
	}

	var forbidden []string
	for attempt := 0; attempt < p.retries; attempt++ {
		imp, ok := missingImportFrom(err)
		if !ok {
			break
		}
		forbidden = append(forbidden, imp)
		logging.SynthesisWarn("load of '%s' failed on import %q, regenerating without it", spec.Name, imp)
		regenerated, rerr := p.generator.Generate(ctx, spec, forbidden)
		if rerr != nil {
			break
		}
		if verr := ValidateSource(regenerated, spec.Name); verr != nil {
			regenerated = FallbackSource(spec.Name, spec.Description)
		}
		if _, serr := p.store.Save(spec.Name, regenerated); serr != nil {
			break
		}
		cap, err = p.loader.Load(regenerated)
		if err == nil {
			return cap, nil
		}
	}

	logging.SynthesisWarn("load of '%s' failed (%v), falling back to minimal capability", spec.Name, err)
	minimal := MinimalFallbackSource(spec.Name, spec.Description)
	if _, serr := p.store.Save(spec.Name, minimal); serr != nil {
		return nil, serr
	}
	cap, lerr := p.loader.Load(minimal)
	if lerr != nil {
		return nil, fmt.Errorf("even the minimal fallback failed to load: %w", lerr)
	}
	return cap, nil
}

// ReloadPersisted loads every persisted capability source at startup
// and registers the ones that still load and are not retired. Broken
// files are skipped with a warning rather than failing boot.
func (p *Pipeline) ReloadPersisted() int {
	names, err := p.store.List()
	if err != nil {
		logging.SynthesisWarn("cannot list persisted capabilities: %v", err)
		return 0
	}

	loaded := 0
	for _, name := range names {
		if p.ledger.Contains(name) {
			logging.SynthesisDebug("skipping retired capability '%s'", name)
			continue
		}
		source, err := p.store.Load(name)
		if err != nil {
			logging.SynthesisWarn("cannot read persisted capability '%s': %v", name, err)
			continue
		}
		cap, err := p.loader.Load(source)
		if err != nil {
			logging.SynthesisWarn("persisted capability '%s' no longer loads: %v", name, err)
			continue
		}
		// The filename is sanitized; the source's own name is what the
		// ledger retired, so it gets the final say.
		if p.ledger.Contains(cap.Name()) {
			logging.SynthesisDebug("skipping retired capability '%s'", cap.Name())
			continue
		}
		p.registry.Register(cap, capability.OriginSynthesized)
		loaded++
	}
	if loaded > 0 {
		logging.Synthesis("reloaded %d persisted capabilities", loaded)
	}
	return loaded
}

// Delete retires a capability: it is unregistered, its name goes on
// the ledger permanently, and the persisted source is removed.
func (p *Pipeline) Delete(name string) error {
	if !p.registry.Unregister(name) {
		return fmt.Errorf("capability '%s' is not registered", name)
	}
	if err := p.ledger.Append(name); err != nil {
		return err
	}
	if err := p.store.Remove(name); err != nil {
		logging.SynthesisWarn("could not remove source for '%s': %v", name, err)
	}
	return nil
}
