package params

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/metrics"
)

func init() {
	metrics.Enabled = true
}

const AppName = "wayside"

var DefaultDatadirRoot = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "."+AppName)
	}
	return filepath.Join(home, "."+AppName)
}()

// CorrectionsDBName is the bbolt file holding trained anchor corrections,
// relative to the datadir.
var CorrectionsDBName = "corrections.db"
var CorrectionsBucket = []byte("corrections")
