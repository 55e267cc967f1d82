package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	dcbpostgres "godcb/pkg/dcb/postgres"
)

func TestPostgresRecorder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "postgres recorder suite")
}

var (
	suiteCtx    context.Context
	suiteCancel context.CancelFunc
	container   *postgres.PostgresContainer
	dsn         string
)

var _ = BeforeSuite(func() {
	suiteCtx, suiteCancel = context.WithTimeout(context.Background(), 120*time.Second)

	var err error
	container, err = postgres.Run(suiteCtx, "postgres:16-alpine",
		postgres.WithDatabase("dcb"),
		postgres.WithUsername("dcb"),
		postgres.WithPassword("dcb"),
	)
	Expect(err).NotTo(HaveOccurred())

	dsn, err = container.ConnectionString(suiteCtx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if container != nil {
		Expect(container.Terminate(suiteCtx)).To(Succeed())
	}
	if suiteCancel != nil {
		suiteCancel()
	}
})

func newRecorder(encoding dcbpostgres.Encoding, table string) (*dcbpostgres.Recorder, error) {
	cfg := dcbpostgres.Config{
		DSN:         dsn,
		Encoding:    encoding,
		EventsTable: table,
		LockTimeout: 5 * time.Second,
	}
	return dcbpostgres.NewRecorder(suiteCtx, cfg)
}

func uniqueTable(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}
