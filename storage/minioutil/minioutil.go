package minioutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/tsjoin/util/testutils"
)

/*
Package minioutil runs an embedded minio server for tests of the S3 storage
provider. The server runs in-process, so only one should be started per test
binary.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	testBucket      = "tsjoin-test"
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
	startupTimeout  = 10 * time.Second
)

func waitForServer(ctx context.Context, madm *madmin.AdminClient) error {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := madm.ServerInfo(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for minio server: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// NewServer starts a minio server on a random port, and returns a client and
// bucket name to use in tests. The third return value tears the server down.
func NewServer(t *testing.T) (*mclient.Client, string, func()) {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	madm, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	datadir, err := os.MkdirTemp("", "tsjoin-minio")
	require.NoError(t, err)

	go minio.Main([]string{"minio", "server", "--quiet", "--address", addr, datadir})
	require.NoError(t, waitForServer(ctx, madm))

	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))
	return mc, testBucket, func() {
		require.NoError(t, os.RemoveAll(datadir))
		// Stopping the service makes minio call os.Exit, so it must not
		// happen before the test binary is finished with its assertions.
		go func() {
			time.Sleep(5 * time.Second)
			if err := madm.ServiceStop(ctx); err != nil {
				t.Log(err)
			}
		}()
	}
}
