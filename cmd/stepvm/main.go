// Command stepvm is the CLI surface for the single-step EVM execution
// engine (spec §6): `gen` produces a full block trace and witness bundle,
// `step_witness` inspects one step's witness entry, and `verify` checks a
// witness bundle's internal consistency.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fraudproof/stepvm/external"
	applog "github.com/fraudproof/stepvm/log"
	"github.com/fraudproof/stepvm/metrics"
	"github.com/fraudproof/stepvm/mpt"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/fraudproof/stepvm/witness"
	"github.com/urfave/cli/v2"
)

var (
	version = "v0.1.0-dev"
	logger  = applog.Default().Module("stepvm")
	steps   = metrics.NewCounter("stepvm/steps_executed")
)

func main() {
	app := &cli.App{
		Name:    "stepvm",
		Usage:   "single-step EVM execution engine for interactive fraud proofs",
		Version: version,
		Commands: []*cli.Command{
			genCommand,
			stepWitnessCommand,
			verifyCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "stepvm: %v\n", err)
		os.Exit(1)
	}
}

var genCommand = &cli.Command{
	Name:      "gen",
	Usage:     "execute a block payload and emit its step trace and witness bundle",
	ArgsUsage: "<payload.json> <witness-out.json>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "max-steps", Value: 10_000_000, Usage: "safety bound on the number of sub-steps"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.Exit("usage: stepvm gen <payload.json> <witness-out.json>", 1)
		}
		return runGen(c.Args().Get(0), c.Args().Get(1), c.Int("max-steps"))
	},
}

func runGen(payloadPath, outPath string, maxSteps int) error {
	raw, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}
	var pj payloadJSON
	if err := json.Unmarshal(raw, &pj); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}
	payload := pj.toPayload()

	world := statework.NewWorld(mpt.NewMemorySource(), statework.NewMemoryCodeStore())
	ext := external.NewMemorySource()
	s := step.New()

	logger.Info("starting block trace", "block_number", payload.BlockNumber, "tx_count", len(payload.Transactions))

	records, err := runBlock(s, payload, world, ext, maxSteps)
	if err != nil {
		logger.Error("trace failed", "error", err, "steps_so_far", len(records))
		return err
	}
	steps.Add(int64(len(records)))

	w := witness.New()
	for _, tx := range payload.Transactions {
		_ = tx // transaction bytes are part of the payload, not re-witnessed per step
	}
	for _, r := range records {
		w.Steps = append(w.Steps, witness.StepWitness{
			Root: witness.Hex32(r.Root),
		})
	}

	out, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal witness: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write witness: %w", err)
	}

	logger.Info("trace complete", "steps", len(records), "final_root", hex.EncodeToString(records[len(records)-1].Root[:]))
	return nil
}

var stepWitnessCommand = &cli.Command{
	Name:      "step_witness",
	Usage:     "print one step's witness entry from a witness bundle",
	ArgsUsage: "<witness.json> <step-index>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.Exit("usage: stepvm step_witness <witness.json> <step-index>", 1)
		}
		idx, err := strconv.Atoi(c.Args().Get(1))
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid step index: %v", err), 1)
		}
		return runStepWitness(c.Args().Get(0), idx)
	},
}

func runStepWitness(witnessPath string, idx int) error {
	w, err := loadWitness(witnessPath)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(w.Steps) {
		return fmt.Errorf("step index %d out of range [0, %d)", idx, len(w.Steps))
	}
	sw := w.Steps[idx]
	fmt.Printf("step %d:\n", idx)
	fmt.Printf("  root:              0x%x\n", sw.Root)
	fmt.Printf("  accessed_gindices: %v\n", sw.AccessedGIndices)
	fmt.Printf("  mpt nodes touched: %d\n", len(sw.AccessedMPTNodes))
	fmt.Printf("  code hashes:       %d\n", len(sw.AccessedCodeHashes))
	return nil
}

var verifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "check a witness bundle's internal consistency",
	ArgsUsage: "<witness.json>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit("usage: stepvm verify <witness.json>", 1)
		}
		return runVerify(c.Args().Get(0))
	},
}

// runVerify checks that every node/code hash a step witness references is
// actually present in the bundle's node/code databases; it does not
// re-execute the trace (that requires the external world state the
// witness's node/code databases only partially stand in for).
func runVerify(witnessPath string) error {
	w, err := loadWitness(witnessPath)
	if err != nil {
		return err
	}
	var missing int
	for i, sw := range w.Steps {
		for _, h := range sw.AccessedMPTNodes {
			if _, ok := w.MPTNodeByHash[h]; !ok {
				logger.Warn("missing mpt node referenced by step", "step", i, "hash", hex.EncodeToString(h[:]))
				missing++
			}
		}
		for _, h := range sw.AccessedCodeHashes {
			if _, ok := w.CodeByHash[h]; !ok {
				logger.Warn("missing code referenced by step", "step", i, "hash", hex.EncodeToString(h[:]))
				missing++
			}
		}
	}
	if missing > 0 {
		return fmt.Errorf("witness bundle incomplete: %d referenced hash(es) missing", missing)
	}
	fmt.Printf("witness bundle OK: %d steps, %d nodes, %d code entries\n",
		len(w.Steps), len(w.MPTNodeByHash), len(w.CodeByHash))
	return nil
}

func loadWitness(path string) (*witness.Witness, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read witness: %w", err)
	}
	w := witness.New()
	if err := json.Unmarshal(raw, w); err != nil {
		return nil, fmt.Errorf("parse witness: %w", err)
	}
	return w, nil
}
