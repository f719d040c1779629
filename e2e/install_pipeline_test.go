//go:build e2e

package e2e

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/orchestrator"
	"github.com/rojo-rbx/rokit/internal/progress"
	"github.com/rojo-rbx/rokit/internal/rpath"
	"github.com/rojo-rbx/rokit/internal/source/github"
	"github.com/rojo-rbx/rokit/internal/store"
)

// fakeGitHub stands in for api.github.com + its asset CDN: one
// release per tool repo, with a caller-supplied asset set and body.
type fakeGitHub struct {
	mux *http.ServeMux
	srv *httptest.Server
}

type releaseJSON struct {
	TagName string      `json:"tag_name"`
	Assets  []assetJSON `json:"assets"`
}

type assetJSON struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func newFakeGitHub() *fakeGitHub {
	f := &fakeGitHub{mux: http.NewServeMux()}
	f.srv = httptest.NewServer(f.mux)
	return f
}

func (f *fakeGitHub) Close() { f.srv.Close() }

// ServeRelease registers a single-release repo at /repos/<scope>/<name>/releases
// whose assets are named exactly as given, each serving body when
// downloaded.
func (f *fakeGitHub) ServeRelease(scope, name, tag string, assets map[string][]byte) {
	var dto releaseJSON
	dto.TagName = tag
	for assetName, body := range assets {
		body := body
		downloadPath := "/assets/" + scope + "/" + name + "/" + assetName
		dto.Assets = append(dto.Assets, assetJSON{
			Name:               assetName,
			Size:               int64(len(body)),
			BrowserDownloadURL: f.srv.URL + downloadPath,
		})
		f.mux.HandleFunc(downloadPath, func(w http.ResponseWriter, r *http.Request) {
			w.Write(body)
		})
	}

	f.mux.HandleFunc("/repos/"+scope+"/"+name+"/releases", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]releaseJSON{dto})
	})
}

func elfBytes() []byte {
	return append([]byte{0x7f, 'E', 'L', 'F'}, make([]byte, 32)...)
}

func machOBytes() []byte {
	return append([]byte{0xcf, 0xfa, 0xed, 0xfe}, make([]byte, 32)...)
}

// zipOf builds a single-entry ZIP archive containing entryName.
func zipOf(entryName string, body []byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(entryName)
	Expect(err).NotTo(HaveOccurred())
	_, err = w.Write(body)
	Expect(err).NotTo(HaveOccurred())
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

// gzipOf gzip-compresses body, the single payload a .gz asset unpacks
// to.
func gzipOf(body []byte) []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(body)
	Expect(err).NotTo(HaveOccurred())
	Expect(gw.Close()).To(Succeed())
	return buf.Bytes()
}

func installPipelineTests() {
	var (
		gh   *fakeGitHub
		dirs *rpath.Dirs
		o    *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		gh = newFakeGitHub()
		var err error
		dirs, err = rpath.New(rpath.WithHome(GinkgoT().TempDir()), rpath.WithCacheDir(GinkgoT().TempDir()))
		Expect(err).NotTo(HaveOccurred())
		Expect(dirs.EnsureAll()).To(Succeed())

		client := github.New(http.DefaultClient)
		client.APIBase = gh.srv.URL

		st := store.New(dirs)
		trust, err := store.LoadTrustCache(dirs.TrustFilePath())
		Expect(err).NotTo(HaveOccurred())

		o = orchestrator.New(dirs, client, st, trust).
			WithTrustPrompter(acceptAllTrust{}).
			WithSink(progress.NoopSink{})
		o.WithHost(id.Host{OS: id.OSLinux, Arch: id.ArchX86_64})

		writeDispatcherStub(dirs.BinDir())
	})

	AfterEach(func() { gh.Close() })

	It("rejects macOS/arm assets for a linux/x86_64 host (scenario 1)", func() {
		By("serving a release with linux, macos, and windows assets")
		gh.ServeRelease("rojo-rbx", "tarmac", "v0.7.0", map[string][]byte{
			"tarmac-0.7.0-linux-x86_64.zip": zipOf("tarmac", elfBytes()),
			"tarmac-0.7.0-macos.zip":        zipOf("tarmac", elfBytes()),
			"tarmac-0.7.0-win64.zip":        zipOf("tarmac.exe", elfBytes()),
		})

		dir := GinkgoT().TempDir()
		manifestPath := filepath.Join(dir, "rokit.toml")
		Expect(os.WriteFile(manifestPath, []byte(`[tools]
tarmac = "rojo-rbx/tarmac@0.7.0"
`), 0o644)).To(Succeed())

		report, err := o.InstallAll(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed()).To(BeFalse())

		installed, err := o.Store().List()
		Expect(err).NotTo(HaveOccurred())
		Expect(installed).To(HaveLen(1))
	})

	It("picks the macOS asset from a mixed-compat release (scenario 2)", func() {
		o.WithHost(id.Host{OS: id.OSMacOS, Arch: id.ArchAarch64})

		gh.ServeRelease("evilmartians", "lefthook", "v1.7.0", map[string][]byte{
			"lefthook_1.7.0_Linux_x86_64.gz": gzipOf(elfBytes()),
			"lefthook_1.7.0_MacOS_arm64.gz":  gzipOf(machOBytes()),
		})

		dir := GinkgoT().TempDir()
		manifestPath := filepath.Join(dir, "rokit.toml")
		Expect(os.WriteFile(manifestPath, []byte(`[tools]
lefthook = "evilmartians/lefthook@1.7.0"
`), 0o644)).To(Succeed())

		report, err := o.InstallAll(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed()).To(BeFalse())
	})

	It("picks the basename-matching binary over a longer sibling entry (scenario 5)", func() {
		gh.ServeRelease("lune-org", "lune", "v0.8.6", func() map[string][]byte {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			w1, _ := zw.Create("lune")
			w1.Write(elfBytes())
			w2, _ := zw.Create("lune-extras")
			w2.Write(elfBytes())
			Expect(zw.Close()).To(Succeed())
			return map[string][]byte{"lune-0.8.6-linux-x86_64.zip": buf.Bytes()}
		}())

		dir := GinkgoT().TempDir()
		manifestPath := filepath.Join(dir, "rokit.toml")
		Expect(os.WriteFile(manifestPath, []byte(`[tools]
lune = "lune-org/lune@0.8.6"
`), 0o644)).To(Succeed())

		report, err := o.InstallAll(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed()).To(BeFalse())
	})
}

type acceptAllTrust struct{}

func (acceptAllTrust) PromptTrust(id.ToolId) progress.TrustDecision { return progress.TrustAccept }

func writeDispatcherStub(binDir string) {
	Expect(os.MkdirAll(binDir, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(binDir, "rokit"), elfBytes(), 0o755)).To(Succeed())
}
