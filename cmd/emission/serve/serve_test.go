package servecmder

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("serve command", func() {
	Describe("newServeLogger", func() {
		It("writes pretty output to the console", func() {
			var console bytes.Buffer
			l := newServeLogger(false, &console, nil)

			l.Info("starting stub backend", "listen", ":8000")

			Expect(console.String()).To(ContainSubstring("starting stub backend"))
			Expect(console.String()).To(ContainSubstring(":8000"))
		})

		It("fans out to console and JSON log file", func() {
			var console, file bytes.Buffer
			l := newServeLogger(false, &console, &file)

			l.Info("request served", "path", "/api/health")

			Expect(console.String()).To(ContainSubstring("request served"))

			var parsed map[string]any
			Expect(json.Unmarshal(file.Bytes(), &parsed)).To(Succeed(), file.String())
			Expect(parsed["msg"]).To(Equal("request served"))
			Expect(parsed["path"]).To(Equal("/api/health"))
		})

		It("honors the debug level on both outputs", func() {
			var console, file bytes.Buffer

			newServeLogger(false, &console, &file).Debug("hidden")
			Expect(console.Len()).To(BeZero())
			Expect(file.Len()).To(BeZero())

			newServeLogger(true, &console, &file).Debug("visible")
			Expect(console.String()).To(ContainSubstring("visible"))
			Expect(file.String()).To(ContainSubstring("visible"))
		})
	})

	Describe("NewServeCmd", func() {
		It("registers the log-file flag", func() {
			cmd := NewServeCmd()
			flag := cmd.Flags().Lookup("log-file")
			Expect(flag).NotTo(BeNil())
			Expect(flag.DefValue).To(BeEmpty())
		})
	})
})
