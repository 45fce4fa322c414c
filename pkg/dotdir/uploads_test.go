package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/pkg/dotdir"
)

var _ = Describe("dotdir.Manager uploads", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	record := func(path, collection, digest string, at time.Time) dotdir.UploadRecord {
		return dotdir.UploadRecord{
			Path:       path,
			Digest:     digest,
			Collection: collection,
			UserName:   "alice",
			Status:     "completed",
			Processed:  10,
			Total:      10,
			UploadedAt: at.UTC(),
		}
	}

	It("returns an empty journal when none exists", func() {
		journal, err := m.LoadUploads(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(journal.Records).To(BeEmpty())
	})

	It("round trips through disk", func() {
		journal := &dotdir.UploadJournal{}
		journal.Record(record("/a.csv", "alice", "d1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(m.SaveUploads(journal, tmpDir)).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, "uploads.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		loaded, err := m.LoadUploads(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(journal))
	})

	It("returns error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "uploads.json"), []byte("nope"), 0o600)).To(Succeed())
		_, err := m.LoadUploads(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing upload journal")))
	})

	It("returns error for nil journal", func() {
		Expect(m.SaveUploads(nil, tmpDir)).To(HaveOccurred())
	})

	It("clears the journal and tolerates a missing file", func() {
		Expect(m.SaveUploads(&dotdir.UploadJournal{}, tmpDir)).To(Succeed())
		Expect(m.ClearUploads(tmpDir)).To(Succeed())
		Expect(m.ClearUploads(tmpDir)).To(Succeed())
	})

	Describe("UploadJournal", func() {
		It("replaces records of the same path and collection", func() {
			j := &dotdir.UploadJournal{}
			t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			j.Record(record("/a.csv", "alice", "d1", t0))
			j.Record(record("/a.csv", "bob", "d1", t0.Add(time.Minute)))
			j.Record(record("/a.csv", "alice", "d2", t0.Add(2*time.Minute)))

			Expect(j.Records).To(HaveLen(2))
			Expect(j.Records[0].Collection).To(Equal("bob"))
			r, ok := j.Find("/a.csv", "alice")
			Expect(ok).To(BeTrue())
			Expect(r.Digest).To(Equal("d2"))
		})

		It("reports completed uploads of identical bytes", func() {
			j := &dotdir.UploadJournal{}
			digest := dotdir.Digest([]byte("csv"))
			j.Record(record("/a.csv", "alice", digest, time.Now()))

			Expect(j.Uploaded("/a.csv", "alice", digest)).To(BeTrue())
			Expect(j.Uploaded("/a.csv", "alice", dotdir.Digest([]byte("changed")))).To(BeFalse())
			Expect(j.Uploaded("/a.csv", "bob", digest)).To(BeFalse())

			failed := record("/b.csv", "alice", digest, time.Now())
			failed.Status = "error"
			j.Record(failed)
			Expect(j.Uploaded("/b.csv", "alice", digest)).To(BeFalse())
		})
	})
})
