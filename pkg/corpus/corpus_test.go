package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorpusIsRestartable(t *testing.T) {
	first := NonASCIIStrings()
	first[0] = "mutated"

	second := NonASCIIStrings()
	assert.NotEqual(t, "mutated", second[0])
	assert.Len(t, second, 5)
}

func TestGroups(t *testing.T) {
	groups := Groups()
	assert.Len(t, groups, 6)

	for _, group := range groups {
		assert.NotEmpty(t, group.Inputs, group.Rule)
	}
	assert.Equal(t, RuleASCII, groups[0].Rule)
	assert.ElementsMatch(t, []string{"service", "serviceType", "relativeRef", "versionId", "versionTime", "hl"}, groups[0].Parameters)
}

func TestCheckersRejectCorpus(t *testing.T) {
	t.Run("non ascii", func(tt *testing.T) {
		for _, in := range NonASCIIStrings() {
			assert.False(tt, IsASCII(in), in)
		}
		assert.True(tt, IsASCII(ValidService))
		assert.True(tt, IsASCII(ValidServiceType))
	})

	t.Run("percent encoding", func(tt *testing.T) {
		for _, in := range NonPercentEncodedRelativeRefs() {
			assert.False(tt, IsPercentEncoded(in), in)
		}
		assert.True(tt, IsPercentEncoded(PercentEncodedRelativeRef))
		assert.False(tt, IsPercentEncoded("bad%2"))
		assert.False(tt, IsPercentEncoded("bad%zz"))
	})

	t.Run("xml datetime", func(tt *testing.T) {
		for _, in := range InvalidXMLDateTimes() {
			assert.False(tt, IsXMLDateTime(in), in)
		}
		for _, in := range NonNormalizedDateTimes() {
			assert.True(tt, IsXMLDateTime(in), in)
		}
		assert.True(tt, IsXMLDateTime(NormalizedVersionTime))
		assert.True(tt, IsXMLDateTime("2024-02-29T00:00:00Z"))
		assert.False(tt, IsXMLDateTime("2025-02-29T00:00:00Z"))
		assert.True(tt, IsXMLDateTime("2025-10-07T24:00:00Z"))
	})

	t.Run("normalized datetime", func(tt *testing.T) {
		for _, in := range NonNormalizedDateTimes() {
			assert.False(tt, IsNormalizedVersionTime(in), in)
		}
		for _, in := range InvalidXMLDateTimes() {
			assert.False(tt, IsNormalizedVersionTime(in), in)
		}
		assert.True(tt, IsNormalizedVersionTime(NormalizedVersionTime))
	})

	t.Run("dids", func(tt *testing.T) {
		for _, in := range UnconformantDIDs() {
			assert.False(tt, IsDID(in), in)
		}
		assert.True(tt, IsDID("did:example:123"))
		assert.True(tt, IsDID("did:web:example.com%3A8443:user:alice"))
		assert.False(tt, IsDID("did:Example:123"))
		assert.False(tt, IsDID("did:example:123#key-1"))
	})

	t.Run("did urls", func(tt *testing.T) {
		assert.True(tt, IsDIDURL("did:example:123"))
		assert.True(tt, IsDIDURL("did:example:123#key-1"))
		assert.True(tt, IsDIDURL("did:example:123/path?service=files"))
		assert.False(tt, IsDIDURL("did:example#key-1"))
		assert.False(tt, IsDIDURL("did:example:123/my path"))
		assert.False(tt, IsDIDURL("did:example:123?x=%zz"))
	})

	t.Run("media types", func(tt *testing.T) {
		assert.False(tt, IsASCII(BadMediaTypes()[0]))
	})
}
