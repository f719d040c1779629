//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rojo-rbx/rokit/internal/dispatch"
	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/source/github"
	"github.com/rojo-rbx/rokit/internal/store"
)

func dispatcherTests() {
	var (
		gh   *fakeGitHub
		dirs *rpath.Dirs
		d    *dispatch.Dispatcher
	)

	BeforeEach(func() {
		gh = newFakeGitHub()
		var err error
		dirs, err = rpath.New(rpath.WithHome(GinkgoT().TempDir()), rpath.WithCacheDir(GinkgoT().TempDir()))
		Expect(err).NotTo(HaveOccurred())
		Expect(dirs.EnsureAll()).To(Succeed())

		client := github.New(nil)
		client.APIBase = gh.srv.URL

		st := store.New(dirs)
		trust, err := store.LoadTrustCache(dirs.TrustFilePath())
		Expect(err).NotTo(HaveOccurred())

		o := orchestrator.New(dirs, client, st, trust).
			WithTrustPrompter(acceptAllTrust{}).
			WithSink(progress.NoopSink{})
		o.WithHost(id.Host{OS: id.OSLinux, Arch: id.ArchX86_64})

		writeDispatcherStub(dirs.BinDir())
		d = dispatch.New(o, dirs.BinDir())
	})

	AfterEach(func() { gh.Close() })

	It("resolves an alias bound in the manifest by installing it on first use", func() {
		By("serving a single-asset release for the bound tool")
		gh.ServeRelease("rojo-rbx", "rojo", "v7.4.1", map[string][]byte{
			"rojo-7.4.1-linux-x86_64.zip": zipOf("rojo", elfBytes()),
		})

		dir := GinkgoT().TempDir()
		writeManifest(dir, "[tools]\nrojo = \"rojo-rbx/rojo@7.4.1\"\n")

		path, err := d.Resolve(context.Background(), "rojo", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).NotTo(BeEmpty())
		Expect(path).To(BeAnExistingFile())
	})

	It("falls through to PATH when no manifest binds the alias (scenario 6)", func() {
		By("writing a manifest with no binding for the alias")
		dir := GinkgoT().TempDir()
		writeManifest(dir, "[tools]\n")

		_, err := d.Resolve(context.Background(), "prettier", dir)
		Expect(err).To(HaveOccurred())

		By("placing a same-named executable on PATH, outside the bin directory")
		pathDir := GinkgoT().TempDir()
		name := "prettier"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		exePath := filepath.Join(pathDir, name)
		Expect(os.WriteFile(exePath, []byte("#!/bin/sh\nexit 0\n"), 0o755)).To(Succeed())

		oldPath := os.Getenv("PATH")
		DeferCleanup(func() { os.Setenv("PATH", oldPath) })
		Expect(os.Setenv("PATH", pathDir+string(os.PathListSeparator)+dirs.BinDir())).To(Succeed())

		found, err := d.ResolveOnPath("prettier")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(Equal(exePath))
	})

	It("never resolves an unbound alias back to rokit's own bin directory", func() {
		name := "shadowed"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		Expect(os.WriteFile(filepath.Join(dirs.BinDir(), name), []byte("shim"), 0o755)).To(Succeed())

		oldPath := os.Getenv("PATH")
		DeferCleanup(func() { os.Setenv("PATH", oldPath) })
		Expect(os.Setenv("PATH", dirs.BinDir())).To(Succeed())

		_, err := d.ResolveOnPath("shadowed")
		Expect(err).To(HaveOccurred())
	})
}

func writeManifest(dir, contents string) {
	Expect(os.WriteFile(filepath.Join(dir, "rokit.toml"), []byte(contents), 0o644)).To(Succeed())
}
