package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/stylectl/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals UploadProgressEvent with expected top-level keys", func() {
		event := eventstream.NewUploadProgressEvent("up-1", "alice", "alice", "chat.csv", eventstream.ProgressMeta{
			Status:     "processing",
			Processed:  3,
			Total:      10,
			Percentage: 30,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		for _, key := range []string{"schema_version", "event_type", "event_id", "emitted_at", "upload_id", "collection", "user_name", "file_name", "progress"} {
			Expect(got).To(HaveKey(key))
		}
		Expect(got["progress"]).To(HaveKeyWithValue("processed", BeNumerically("==", 3)))
		Expect(got["progress"]).NotTo(HaveKey("error"))
	})

	It("stamps ids and versions", func() {
		a := eventstream.NewUploadProgressEvent("up-1", "c", "u", "f", eventstream.ProgressMeta{})
		b := eventstream.NewUploadProgressEvent("up-1", "c", "u", "f", eventstream.ProgressMeta{})

		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(a.EventType).To(Equal("stylectl.upload.progress"))
		Expect(a.EmittedAt.IsZero()).To(BeFalse())
	})

	It("provides ErrNilProgressEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilProgressEvent).To(MatchError("nil upload progress event"))
	})
})
