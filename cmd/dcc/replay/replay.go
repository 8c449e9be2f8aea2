package replay

import (
	"fmt"
	"os"

	"dcc/internal/copilot"
	"dcc/internal/render"
	"dcc/internal/stream"

	"github.com/spf13/cobra"
)

var (
	chunkSize int
	raw       bool
)

var Cmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Decode a recorded NDJSON stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		printer := render.Stdout(raw)
		tr := &copilot.Transcript{Next: printer}
		d := stream.NewDecoder(tr, stream.WithChunkSize(chunkSize))
		err = d.Decode(f)
		printer.Close()
		if err != nil {
			return err
		}

		st := d.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(),
			"%d events from %d lines in %d chunks (%d bytes); discarded %d (blank %d, malformed %d, untyped %d, unknown kind %d); tail %d bytes; status %s\n",
			st.Events, st.Lines, st.Chunks, st.Bytes,
			st.Discarded(), st.Blank, st.Malformed, st.Untyped, st.UnknownKind,
			st.TailBytes, tr.Status())
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&chunkSize, "chunk-size", "c", 32*1024, "bytes per read")
	Cmd.Flags().BoolVar(&raw, "raw", false, "print events as NDJSON")
}
