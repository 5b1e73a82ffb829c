//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
	"github.com/shieldtechhub/shieldagent/internal/infra"
	"github.com/shieldtechhub/shieldagent/internal/usecase"
)

// fakeBackend is an in-memory guardian backend over real HTTP.
type fakeBackend struct {
	mu        sync.Mutex
	snapshots []domain.DeviceSnapshot
	policyDoc []byte
	failNext  int
	srv       *httptest.Server
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.Method == http.MethodPut:
			if b.failNext > 0 {
				b.failNext--
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			var snap domain.DeviceSnapshot
			if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			b.snapshots = append(b.snapshots, snap)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			if b.policyDoc == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(b.policyDoc)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	return b
}

func (b *fakeBackend) snapshotCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snapshots)
}

func (b *fakeBackend) lastSnapshot() domain.DeviceSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshots[len(b.snapshots)-1]
}

type fixedInventory struct {
	mu   sync.Mutex
	apps []domain.AppInfo
}

func (f *fixedInventory) ListInstalledApps(ctx context.Context) ([]domain.AppInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apps, nil
}

func (f *fixedInventory) set(apps []domain.AppInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps = apps
}

type alwaysOnline struct{}

func (alwaysOnline) IsNetworkAvailable() bool { return true }

var _ = Describe("Inventory Sync", func() {
	var (
		backend   *fakeBackend
		inventory *fixedInventory
		syncer    *usecase.Syncer
	)

	app := func(pkg string, versionCode int64) domain.AppInfo {
		return domain.AppInfo{
			PackageName: pkg,
			Name:        pkg,
			Version:     "1.0",
			VersionCode: versionCode,
			Category:    domain.CategoryOther,
			IsEnabled:   true,
		}
	}

	BeforeEach(func() {
		backend = newFakeBackend()
		inventory = &fixedInventory{}
		inventory.set([]domain.AppInfo{app("com.a", 1), app("com.b", 1)})

		cfg := usecase.DefaultSyncerConfig("child-1", "device-1")
		cfg.RetryDelay = time.Millisecond
		remote := infra.NewHTTPRemoteStore(backend.srv.URL, "test-key")
		syncer = usecase.NewSyncer(cfg, inventory, usecase.NewUsageTracker(),
			remote, alwaysOnline{}, zap.NewNop())
	})

	AfterEach(func() {
		backend.srv.Close()
	})

	Describe("first sync", func() {
		It("uploads the full inventory over HTTP", func() {
			err := syncer.SyncNow(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(backend.snapshotCount()).To(Equal(1))
			snap := backend.lastSnapshot()
			Expect(snap.Apps).To(HaveLen(2))
			Expect(snap.Fingerprint.FullHash).NotTo(BeEmpty())
			Expect(snap.SyncStatus.IsFullSync).To(BeTrue())

			status := syncer.Status()
			Expect(status.IsSuccessful()).To(BeTrue())
			Expect(status.ProgressPercent()).To(Equal(100))
		})
	})

	Describe("repeated sync with unchanged inventory", func() {
		It("skips the upload but still reports success", func() {
			Expect(syncer.SyncNow(context.Background())).To(Succeed())
			Expect(syncer.SyncNow(context.Background())).To(Succeed())

			Expect(backend.snapshotCount()).To(Equal(1))
			Expect(syncer.Status().IsSuccessful()).To(BeTrue())
		})
	})

	Describe("inventory change between cycles", func() {
		It("uploads again and reports the install", func() {
			Expect(syncer.SyncNow(context.Background())).To(Succeed())

			inventory.set([]domain.AppInfo{app("com.a", 1), app("com.b", 1), app("com.c", 1)})
			Expect(syncer.SyncNow(context.Background())).To(Succeed())

			Expect(backend.snapshotCount()).To(Equal(2))
			Expect(backend.lastSnapshot().Apps).To(HaveLen(3))
			Expect(backend.lastSnapshot().SyncStatus.IsFullSync).To(BeTrue())
		})
	})

	Describe("transient backend failures", func() {
		It("retries and eventually succeeds", func() {
			backend.mu.Lock()
			backend.failNext = 2
			backend.mu.Unlock()

			err := syncer.SyncNow(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.snapshotCount()).To(Equal(1))
			Expect(syncer.Status().RetryAttempts).To(BeZero())
		})
	})

	Describe("persistent backend failures", func() {
		It("exhausts retries and ends FAILED", func() {
			backend.mu.Lock()
			backend.failNext = 100
			backend.mu.Unlock()

			err := syncer.SyncNow(context.Background())
			Expect(err).To(HaveOccurred())

			status := syncer.Status()
			Expect(status.HasFailed()).To(BeTrue())
			Expect(status.CanRetry()).To(BeFalse())
			Expect(status.RetryAttempts).To(Equal(domain.DefaultMaxRetryAttempts))
		})
	})
})

var _ = Describe("Policy Pull", func() {
	It("applies a guardian-authored policy end to end", func() {
		backend := newFakeBackend()
		defer backend.srv.Close()
		backend.mu.Lock()
		backend.policyDoc = []byte(`{
			"id": "remote-policy",
			"name": "Strict Mode",
			"appPolicies": [{"packageName": "com.instagram.android", "action": "BLOCK"}]
		}`)
		backend.mu.Unlock()

		remote := infra.NewHTTPRemoteStore(backend.srv.URL, "test-key")
		doc, err := remote.FetchPolicy(context.Background(), "child-1", "device-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc).NotTo(BeNil())
	})
})
