package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gwdc/gwlab-viterbi-go/internal/metrics"
)

// printMetrics writes the per-command timing summary shown with --verbose.
func printMetrics(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(w, "\nRequest Statistics\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Elapsed: %.1f seconds\n", snap.UptimeSeconds)

	if snap.Query != nil {
		fmt.Fprintf(w, "\nGraphQL Queries:\n")
		printOpStats(w, snap.Query)
	}

	if snap.Mutation != nil {
		fmt.Fprintf(w, "\nGraphQL Mutations:\n")
		printOpStats(w, snap.Mutation)
	}

	if snap.Download != nil {
		fmt.Fprintf(w, "\nFile Downloads:\n")
		printOpStats(w, snap.Download)
		fmt.Fprintf(w, "  Transferred: %s\n", humanize.Bytes(uint64(snap.Download.Bytes)))
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
