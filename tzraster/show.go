package tzraster

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Show prints a summary of a dataset: format, feature and timezone counts and
// extent. With listTimezones it also prints every identifier next to its
// normalized form.
func Show(ctx context.Context, logger *zap.Logger, w io.Writer, bucketURL string, input string, field string, listTimezones bool) error {
	layer, err := Open(ctx, logger, bucketURL, input, field)
	if err != nil {
		return err
	}
	timezones := NewTimezones(layer.Timezones())

	fmt.Fprintf(w, "format: %s\n", layer.Format)
	if bucketURL == "" {
		if info, err := os.Stat(input); err == nil {
			fmt.Fprintf(w, "file size: %s\n", humanize.Bytes(uint64(info.Size())))
		}
	}
	fmt.Fprintf(w, "field: %s\n", layer.Field)
	fmt.Fprintf(w, "features: %s\n", humanize.Comma(int64(len(layer.Features))))
	if layer.Skipped > 0 {
		fmt.Fprintf(w, "skipped features: %s\n", humanize.Comma(int64(layer.Skipped)))
	}
	fmt.Fprintf(w, "timezones: %s\n", humanize.Comma(int64(len(timezones))))
	fmt.Fprintf(w, "extent: %f,%f %f,%f\n", layer.Extent.Min[0], layer.Extent.Min[1], layer.Extent.Max[0], layer.Extent.Max[1])

	if listTimezones {
		for _, tz := range timezones {
			if tz.Raw == tz.Normalized {
				fmt.Fprintf(w, "%s\n", tz.Raw)
			} else {
				fmt.Fprintf(w, "%s -> %s\n", tz.Raw, tz.Normalized)
			}
		}
	}
	return nil
}
