package cmdutil_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/cmd/stylectl/cmdutil"
	"github.com/papercomputeco/stylectl/pkg/dotdir"
	"github.com/papercomputeco/stylectl/pkg/logger"
	"github.com/papercomputeco/stylectl/pkg/uploader"
	testutils "github.com/papercomputeco/stylectl/pkg/utils/test"
)

const exportCSV = "2024-01-02 10:00:00,alice,dinner tonight?\n2024-01-02 10:00:05,bob,sure\n"

// blockingWriter holds the upload stream until release is closed.
func blockingWriter(release <-chan struct{}) io.Writer {
	pr, pw := io.Pipe()
	go func() {
		<-release
		_, _ = io.Copy(io.Discard, pr)
	}()
	return pw
}

var _ = Describe("UploadSession", func() {
	var (
		fake      *testutils.FakeBackend
		configDir string
		export    string
		out       *bytes.Buffer
	)

	newSession := func(force bool) *cmdutil.UploadSession {
		s, err := cmdutil.NewUploadSession(cmdutil.UploadSessionConfig{
			Client:    fake.Client(),
			Workers:   2,
			QueueSize: 4,
			ConfigDir: configDir,
			Force:     force,
			Out:       out,
			Context:   context.Background(),
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		fake = testutils.NewFakeBackend("")
		DeferCleanup(fake.Close)

		configDir = GinkgoT().TempDir()
		export = filepath.Join(GinkgoT().TempDir(), "KakaoTalk_Chat_room42.csv")
		Expect(os.WriteFile(export, []byte(exportCSV), 0o600)).To(Succeed())
		out = &bytes.Buffer{}
	})

	It("uploads, reports progress and journals the result", func() {
		s := newSession(false)
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())

		summary, err := s.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal(cmdutil.UploadSummary{Completed: 1}))

		Expect(out.String()).To(ContainSubstring("KakaoTalk_Chat_room42.csv 1/2 (50%)"))
		Expect(out.String()).To(ContainSubstring("2/2 into alice"))

		uploads := fake.Uploads()
		Expect(uploads).To(HaveLen(1))
		Expect(uploads[0].FileName).To(Equal("KakaoTalk_Chat_room42.csv"))

		journal, err := dotdir.NewManager().LoadUploads(configDir)
		Expect(err).NotTo(HaveOccurred())
		rec, ok := journal.Find(export, "alice")
		Expect(ok).To(BeTrue())
		Expect(rec.Status).To(Equal("completed"))
		Expect(rec.Processed).To(Equal(2))
		Expect(rec.Digest).To(Equal(dotdir.Digest([]byte(exportCSV))))
	})

	It("skips files whose bytes are already uploaded", func() {
		first := newSession(false)
		Expect(first.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		_, err := first.Close()
		Expect(err).NotTo(HaveOccurred())

		second := newSession(false)
		Expect(second.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(MatchError(cmdutil.ErrAlreadyUploaded))
		summary, err := second.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Skipped).To(Equal(1))
		Expect(fake.Uploads()).To(HaveLen(1))
	})

	It("uploads a file submitted twice in one session once", func() {
		s := newSession(false)
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(MatchError(cmdutil.ErrAlreadyUploaded))

		summary, err := s.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal(cmdutil.UploadSummary{Completed: 1, Skipped: 1}))
		Expect(fake.Uploads()).To(HaveLen(1))
		Expect(strings.Count(out.String(), "2/2 into alice")).To(Equal(1))
	})

	It("reports a queued duplicate as in progress", func() {
		release := make(chan struct{})
		s := newSession(false)
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice", Transcript: blockingWriter(release)})).To(Succeed())
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(MatchError(cmdutil.ErrUploadInProgress))
		close(release)

		summary, err := s.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal(cmdutil.UploadSummary{Completed: 1, Skipped: 1}))
		Expect(fake.Uploads()).To(HaveLen(1))
	})

	It("uploads the same file into different collections", func() {
		s := newSession(false)
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		Expect(s.Submit(uploader.Job{Path: export, Collection: "shared", UserName: "alice"})).To(Succeed())

		summary, err := s.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Completed).To(Equal(2))
		Expect(fake.Uploads()).To(HaveLen(2))
	})

	It("uploads again when the file changed", func() {
		first := newSession(false)
		Expect(first.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		_, _ = first.Close()

		Expect(os.WriteFile(export, []byte(exportCSV+"2024-01-02 10:01:00,alice,see you\n"), 0o600)).To(Succeed())

		second := newSession(false)
		Expect(second.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		_, err := second.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Uploads()).To(HaveLen(2))
	})

	It("uploads again when forced", func() {
		first := newSession(false)
		Expect(first.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		_, _ = first.Close()

		second := newSession(true)
		Expect(second.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())
		_, err := second.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Uploads()).To(HaveLen(2))
	})

	It("reports failed uploads and journals them as errors", func() {
		fake.SetUploadFrames(`data: {"status":"error","processed":0,"total":2,"percentage":0,"error":"embedding failed"}` + "\n\n")

		s := newSession(false)
		Expect(s.Submit(uploader.Job{Path: export, Collection: "alice", UserName: "alice"})).To(Succeed())

		summary, err := s.Close()
		Expect(err).To(MatchError(ContainSubstring("1 of 1 uploads failed")))
		Expect(summary.Failed).To(Equal(1))
		Expect(out.String()).To(ContainSubstring("embedding failed"))

		journal, err := dotdir.NewManager().LoadUploads(configDir)
		Expect(err).NotTo(HaveOccurred())
		rec, ok := journal.Find(export, "alice")
		Expect(ok).To(BeTrue())
		Expect(rec.Status).To(Equal("error"))
	})

	It("rejects unreadable files before queueing", func() {
		s := newSession(false)
		err := s.Submit(uploader.Job{Path: filepath.Join(configDir, "missing.csv"), Collection: "alice", UserName: "alice"})
		Expect(err).To(MatchError(ContainSubstring("reading")))
		_, err = s.Close()
		Expect(err).NotTo(HaveOccurred())
	})
})
