//go:build integration

package integration

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSyncIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sync Integration Suite")
}
