package provider_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
)

type trackingBody struct {
	io.Reader
	closes int
}

func (b *trackingBody) Close() error {
	b.closes++
	return nil
}

var _ = Describe("Error", func() {
	It("reports the underlying error text", func() {
		err := provider.Wrap(provider.KindUpstreamUnavailable, "upstream chat", errors.New("connection refused"))
		Expect(err.Error()).To(Equal("connection refused"))
	})

	It("is found through wrapping", func() {
		inner := provider.Errorf(provider.KindUpstreamTimeout, "upstream chat", "took too long")
		wrapped := fmt.Errorf("relay: %w", inner)
		Expect(provider.KindOf(wrapped)).To(Equal(provider.KindUpstreamTimeout))
	})

	It("unwraps to the cause", func() {
		err := provider.Wrap(provider.KindUpstreamTimeout, "upstream chat", context.DeadlineExceeded)
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("treats unclassified errors as internal", func() {
		Expect(provider.KindOf(errors.New("boom"))).To(Equal(provider.KindInternal))
	})

	It("wraps nil to nil", func() {
		Expect(provider.Wrap(provider.KindInternal, "op", nil)).To(BeNil())
	})

	DescribeTable("kind names",
		func(kind provider.Kind, name string) {
			Expect(kind.String()).To(Equal(name))
		},
		Entry("invalid request", provider.KindInvalidRequest, "invalid_request"),
		Entry("upstream unavailable", provider.KindUpstreamUnavailable, "upstream_unavailable"),
		Entry("upstream timeout", provider.KindUpstreamTimeout, "upstream_timeout"),
		Entry("serialization", provider.KindSerialization, "serialization_error"),
		Entry("internal", provider.KindInternal, "internal"),
	)
})

var _ = Describe("Stream", func() {
	It("frames the upstream body", func() {
		body := &trackingBody{Reader: strings.NewReader("data: 1\n\ndata: [DONE]\n")}
		stream := provider.NewStream(200, body)

		var frames []string
		for frame, err := range stream.Frames(context.Background()) {
			Expect(err).NotTo(HaveOccurred())
			frames = append(frames, string(frame))
		}
		Expect(frames).To(Equal([]string{"data: 1\n\n", "data: [DONE]\n\n"}))
	})

	It("closes the upstream body exactly once", func() {
		body := &trackingBody{Reader: strings.NewReader("")}
		stream := provider.NewStream(200, body)

		Expect(stream.Close()).To(Succeed())
		Expect(stream.Close()).To(Succeed())
		Expect(body.closes).To(Equal(1))
	})
})
