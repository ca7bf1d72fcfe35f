package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"spvoracle.dev/core/consensus"
	"spvoracle.dev/core/oracle"
	"spvoracle.dev/core/store"
)

// Request is a single JSON operation read from stdin.
type Request struct {
	Op string `json:"op"`

	RawHeaderHex  string   `json:"rawHeaderHex,omitempty"`
	RawHeadersHex []string `json:"rawHeadersHex,omitempty"`
	InitHeight    uint64   `json:"initHeight,omitempty"`

	Height      uint64 `json:"height,omitempty"`
	HashHex     string `json:"hashHex,omitempty"`
	RequireSafe bool   `json:"requireSafe,omitempty"`

	TxIndex uint64 `json:"txIndex,omitempty"`
	TxHex   string `json:"txHex,omitempty"`
	ProofHex []string `json:"proofHex,omitempty"`

	Bits uint32 `json:"bits,omitempty"`
}

// Response is the JSON result written to stdout for every request.
type Response struct {
	OK    bool        `json:"ok"`
	Kind  string      `json:"kind,omitempty"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

func main() {
	dataDir := flag.String("data-dir", "", "header store directory")
	checkPoW := flag.Bool("check-pow", true, "enforce proof-of-work and retarget validation")
	logLevel := flag.String("log-level", "info", "logrus level")
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	if *dataDir == "" {
		fmt.Fprintln(os.Stderr, "spv-oraclectl: -data-dir is required")
		os.Exit(2)
	}

	cfg := oracle.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.CheckPoW = *checkPoW

	o, err := oracle.New(cfg, oracle.NewLogEventSink(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "spv-oraclectl: open store: %v\n", err)
		os.Exit(1)
	}
	defer o.Close()

	dec := json.NewDecoder(os.Stdin)
	enc := json.NewEncoder(os.Stdout)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			break
		}
		enc.Encode(handle(o, req))
	}
}

func handle(o *oracle.Oracle, req Request) Response {
	switch req.Op {
	case "init":
		raw, err := hex.DecodeString(req.RawHeaderHex)
		if err != nil {
			return errResponse(err)
		}
		if err := o.Init(raw, req.InitHeight); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}

	case "submit":
		raw, err := hex.DecodeString(req.RawHeaderHex)
		if err != nil {
			return errResponse(err)
		}
		if err := o.Submit(raw); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}

	case "batch-submit":
		raws := make([][]byte, len(req.RawHeadersHex))
		for i, s := range req.RawHeadersHex {
			raw, err := hex.DecodeString(s)
			if err != nil {
				return errResponse(err)
			}
			raws[i] = raw
		}
		if err := o.BatchSubmit(raws); err != nil {
			return errResponse(err)
		}
		return Response{OK: true}

	case "get-header":
		var hash [32]byte
		if req.HashHex != "" {
			if err := decodeHash(req.HashHex, &hash); err != nil {
				return errResponse(err)
			}
			rec, err := o.GetBlockRecordByHash(hash, req.RequireSafe)
			if err != nil {
				return errResponse(err)
			}
			return Response{OK: true, Data: recordPayload(rec)}
		}
		rec, err := o.GetBlockRecordByHeight(req.Height, req.RequireSafe)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: recordPayload(rec)}

	case "is-finalized":
		var ok bool
		var err error
		if req.HashHex != "" {
			var hash [32]byte
			if err := decodeHash(req.HashHex, &hash); err != nil {
				return errResponse(err)
			}
			ok, err = o.IsFinalizedByHash(hash)
		} else {
			ok, err = o.IsFinalizedByHeight(req.Height)
		}
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: ok}

	case "validate-proof":
		var hash [32]byte
		if req.HashHex != "" {
			if err := decodeHash(req.HashHex, &hash); err != nil {
				return errResponse(err)
			}
		}
		txData, err := hex.DecodeString(req.TxHex)
		if err != nil {
			return errResponse(err)
		}
		proof := make([][32]byte, len(req.ProofHex))
		for i, s := range req.ProofHex {
			if err := decodeHash(s, &proof[i]); err != nil {
				return errResponse(err)
			}
		}
		valid, err := o.Validate(req.Height, hash, req.RequireSafe, req.TxIndex, txData, proof)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: valid}

	case "stats":
		s, err := o.Stats()
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: map[string]interface{}{
			"tipHash":         hex.EncodeToString(s.TipHash[:]),
			"tipHeight":       s.TipHeight,
			"firstHash":       hex.EncodeToString(s.FirstHash[:]),
			"firstHeight":     s.FirstHeight,
			"initBlockHeight": s.InitBlockHeight,
			"checkPoW":        s.CheckPoW,
		}}

	case "bits-to-target":
		target, err := consensus.BitsToTarget(req.Bits)
		if err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: hex.EncodeToString(target[:])}

	case "target-to-bits":
		var target [32]byte
		if err := decodeHash(req.HashHex, &target); err != nil {
			return errResponse(err)
		}
		return Response{OK: true, Data: consensus.TargetToBits(target)}

	default:
		return Response{Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func decodeHash(s string, out *[32]byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return nil
}

func recordPayload(rec store.Record) interface{} {
	return map[string]interface{}{
		"height":      rec.Height,
		"isCanonical": rec.IsCanonical,
		"chainWork":   rec.ChainWork.String(),
		"version":     rec.Header.Version,
		"prevBlock":   hex.EncodeToString(rec.Header.PrevBlock[:]),
		"merkleRoot":  hex.EncodeToString(rec.Header.MerkleRoot[:]),
		"timestamp":   rec.Header.Timestamp,
		"bits":        rec.Header.Bits,
		"nonce":       rec.Header.Nonce,
	}
}

func errResponse(err error) Response {
	if oe, ok := err.(*oracle.Error); ok {
		return Response{OK: false, Kind: string(oe.Kind), Error: oe.Error()}
	}
	return Response{OK: false, Error: err.Error()}
}
