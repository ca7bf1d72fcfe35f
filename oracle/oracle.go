package oracle

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"spvoracle.dev/core/consensus"
	"spvoracle.dev/core/store"
)

// defaultMinConfirmations is the default depth at which a block is
// considered final absent an override in Config.
const defaultMinConfirmations = 6

// Config configures an Oracle instance.
type Config struct {
	DataDir          string
	Network          string
	CacheSize        int
	CheckPoW         bool
	MinConfirmations uint64
	LogLevel         logrus.Level
}

// DefaultConfig returns a Config with mainnet-sane defaults. Callers still
// must set DataDir before passing it to New.
func DefaultConfig() Config {
	return Config{
		Network:          "mainnet",
		CacheSize:        1024,
		CheckPoW:         true,
		MinConfirmations: defaultMinConfirmations,
		LogLevel:         logrus.InfoLevel,
	}
}

// ValidateConfig rejects a Config an Oracle could not safely run with.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if cfg.MinConfirmations == 0 {
		return fmt.Errorf("min confirmations must be at least 1")
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	return nil
}

// Oracle is a header-chain engine: it tracks the canonical Bitcoin header
// chain built from submitted headers, resolves reorganizations by
// cumulative proof-of-work, and answers height/hash/finality/Merkle-proof
// queries against it.
type Oracle struct {
	db   *store.DB
	cfg  Config
	log  *logrus.Logger
	sink EventSink

	registry *prometheus.Registry
	metrics  *metrics
}

// New opens the on-disk store at cfg.DataDir and returns a ready Oracle.
// Call Init on a freshly created store before submitting headers to it.
func New(cfg Config, sink EventSink) (*Oracle, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.DataDir, cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	log := logrus.New()
	log.SetLevel(cfg.LogLevel)

	if sink == nil {
		sink = NopEventSink{}
	}

	reg := prometheus.NewRegistry()

	return &Oracle{
		db:       db,
		cfg:      cfg,
		log:      log,
		sink:     sink,
		registry: reg,
		metrics:  newMetrics(reg),
	}, nil
}

// Close releases the underlying store.
func (o *Oracle) Close() error {
	return o.db.Close()
}

// Registry exposes the Oracle's private Prometheus registry for scraping.
func (o *Oracle) Registry() *prometheus.Registry {
	return o.registry
}

// Init anchors the chain at rawHeader, treating it as already-final history
// at initBlockHeight. initBlockHeight must land on a retarget boundary so
// that the first post-anchor difficulty adjustment has a well-defined
// window start. Init may be called at most once per store.
func (o *Oracle) Init(rawHeader []byte, initBlockHeight uint64) error {
	if initBlockHeight%difficultyAdjustmentInterval != 0 {
		return newErr(KindInitNotAtRetargetBoundary, fmt.Sprintf(
			"init height %d is not a multiple of %d", initBlockHeight, difficultyAdjustmentInterval))
	}

	header, err := consensus.ParseHeader(rawHeader)
	if err != nil {
		return newErr(KindInvalidHeaderLength, err.Error())
	}
	hash, err := consensus.BlockHash(rawHeader)
	if err != nil {
		return newErr(KindInvalidHeaderLength, err.Error())
	}
	work, err := consensus.BitsToWork(header.Bits)
	if err != nil {
		return bitsErr(err)
	}

	var evt Event
	err = o.db.Update(func(tx *store.Tx) error {
		if _, ok, gerr := tx.FirstBlockHash(); gerr != nil {
			return gerr
		} else if ok {
			return newErr(KindHeaderAlreadyExists, "store already anchored")
		}
		if _, ok, gerr := tx.GetHeader(hash); gerr != nil {
			return gerr
		} else if ok {
			return newErr(KindHeaderAlreadyExists, "store already anchored")
		}

		rec := store.Record{
			Header:      header,
			Height:      initBlockHeight,
			IsCanonical: true,
			ChainWork:   work,
		}
		if err := tx.PutHeader(hash, rec); err != nil {
			return err
		}
		if err := tx.PutHeightHash(initBlockHeight, hash); err != nil {
			return err
		}
		if err := tx.SetLatestBlockHash(hash); err != nil {
			return err
		}
		if err := tx.SetFirstBlockHash(hash); err != nil {
			return err
		}
		if err := tx.SetInitBlockHeight(initBlockHeight); err != nil {
			return err
		}
		if err := tx.SetCheckPoW(o.cfg.CheckPoW); err != nil {
			return err
		}

		evt = Event{Hash: hash, Height: initBlockHeight, Raw: rawHeader, LatestUpdated: true}
		return nil
	})
	if err != nil {
		o.recordSubmission("init_rejected")
		return err
	}

	o.recordSubmission("init_accepted")
	o.sink.NewBlockHeader(evt)
	return nil
}
