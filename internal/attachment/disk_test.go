package attachment

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestAttachment(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Attachment Module Suite")
}

var _ = ginkgo.Describe("DiskStorage", func() {
	var (
		root    string
		storage *DiskStorage
	)

	ginkgo.BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "attachments")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		storage = NewDiskStorage(root, 1024)
	})

	ginkgo.AfterEach(func() {
		os.RemoveAll(root)
	})

	upload := func(name, body string) Upload {
		return Upload{
			Name:        name,
			ContentType: "application/pdf",
			Size:        int64(len(body)),
			Content:     strings.NewReader(body),
		}
	}

	ginkgo.Describe("Store", func() {
		ginkgo.It("writes the file under the owner and expense namespace", func() {
			rel, err := storage.Store(7, 42, upload("receipt.pdf", "pdf bytes"))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rel).To(gomega.HavePrefix(filepath.Join("7", "42") + string(os.PathSeparator)))
			gomega.Expect(rel).To(gomega.HaveSuffix("-receipt.pdf"))

			content, err := os.ReadFile(filepath.Join(root, rel))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(string(content)).To(gomega.Equal("pdf bytes"))
		})

		ginkgo.It("produces a distinct key per attempt for the same name", func() {
			first, err := storage.Store(7, 42, upload("receipt.pdf", "first"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			second, err := storage.Store(7, 42, upload("receipt.pdf", "second"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(second).ToNot(gomega.Equal(first))

			content, err := os.ReadFile(filepath.Join(root, first))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(string(content)).To(gomega.Equal("first"))
		})

		ginkgo.It("strips directory components from the client name", func() {
			rel, err := storage.Store(7, 42, upload("../../../etc/passwd", "x"))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rel).To(gomega.HaveSuffix("-passwd"))
			gomega.Expect(rel).ToNot(gomega.ContainSubstring(".."))
		})

		ginkgo.It("rejects an empty upload", func() {
			_, err := storage.Store(7, 42, Upload{Name: "empty.pdf", Size: 0, Content: strings.NewReader("")})
			gomega.Expect(err).To(gomega.MatchError(ErrEmptyUpload))
		})

		ginkgo.It("rejects a file over the size limit", func() {
			body := strings.Repeat("a", 2048)
			_, err := storage.Store(7, 42, upload("big.pdf", body))
			gomega.Expect(err).To(gomega.HaveOccurred())

			entries, _ := os.ReadDir(root)
			gomega.Expect(entries).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects names that reduce to nothing", func() {
			_, err := storage.Store(7, 42, upload("..", "x"))
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Remove", func() {
		ginkgo.It("deletes a stored file", func() {
			rel, err := storage.Store(7, 42, upload("receipt.pdf", "pdf bytes"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(storage.Remove(rel)).To(gomega.Succeed())
			_, err = os.Stat(filepath.Join(root, rel))
			gomega.Expect(os.IsNotExist(err)).To(gomega.BeTrue())
		})

		ginkgo.It("tolerates a path that is already gone", func() {
			gomega.Expect(storage.Remove("7/42/missing.pdf")).To(gomega.Succeed())
		})

		ginkgo.It("refuses paths escaping the storage root", func() {
			err := storage.Remove("../outside.pdf")
			gomega.Expect(err).To(gomega.MatchError(ErrBadFileName))
		})
	})
})
