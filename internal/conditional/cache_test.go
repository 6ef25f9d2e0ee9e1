package conditional

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DockerDiscordControl/DockerDiscordControl-Windows-sub001/internal/domain"
)

func content(status string) Content {
	return Content{
		Title: "web",
		Color: 0x2ecc71,
		Fields: []Field{
			{Name: "Status", Value: status, Inline: true},
			{Name: "CPU", Value: "1.0%", Inline: true},
		},
	}
}

func TestDedupRoundTrip(t *testing.T) {
	c := New(DefaultConfig())
	k := Key{ChannelID: "1", ResourceID: "web"}
	x := content("running")

	assert.True(t, c.HasChanged(k, x), "first sight")
	c.Commit(k, x)
	assert.False(t, c.HasChanged(k, x))
	c.Skip()
	assert.True(t, c.HasChanged(k, content("stopped")))

	s := c.Statistics()
	assert.Equal(t, uint64(1), s.Sent)
	assert.Equal(t, uint64(1), s.Skipped)
	assert.Equal(t, 1, s.Size)
}

func TestHasChangedDoesNotTouchBaseline(t *testing.T) {
	c := New(DefaultConfig())
	k := Key{ChannelID: "1", ResourceID: "web"}
	c.Commit(k, content("running"))

	before := c.Statistics()
	assert.True(t, c.HasChanged(k, content("stopped")))
	assert.True(t, c.HasChanged(k, content("stopped")), "still differs until committed")
	assert.False(t, c.HasChanged(k, content("running")))
	assert.False(t, c.HasChanged(k, content("running")))
	assert.Equal(t, before, c.Statistics(), "counters are left alone")
}

func TestCommitCopiesFields(t *testing.T) {
	c := New(DefaultConfig())
	k := Key{ChannelID: "1", ResourceID: "web"}
	x := content("running")
	c.Commit(k, x)

	x.Fields[0].Value = "mutated"
	assert.False(t, c.HasChanged(k, content("running")))
}

func TestKeysArePerChannel(t *testing.T) {
	c := New(DefaultConfig())
	x := content("running")
	c.Commit(Key{ChannelID: "1", ResourceID: "web"}, x)

	assert.True(t, c.HasChanged(Key{ChannelID: "2", ResourceID: "web"}, x))
}

func TestTrimKeepsMostRecent(t *testing.T) {
	c := New(Config{MaxKeys: 3, TrimEvery: 5})
	keys := make([]Key, 5)
	for i := range keys {
		keys[i] = Key{ChannelID: "1", ResourceID: domain.ResourceID(fmt.Sprintf("r%d", i))}
	}

	for _, k := range keys[:4] {
		c.Commit(k, content("running"))
	}
	assert.Equal(t, 4, c.Statistics().Size, "no trim before the fifth commit")

	// Re-commit r0 so it becomes recent, then the fifth commit trims.
	c.Commit(keys[0], content("stopped"))
	s := c.Statistics()
	assert.Equal(t, 3, s.Size)
	assert.Equal(t, uint64(1), s.Trims)

	assert.False(t, c.HasChanged(keys[0], content("stopped")), "newest key survives the trim")
	assert.True(t, c.HasChanged(keys[1], content("running")), "oldest key was dropped")
	assert.False(t, c.HasChanged(keys[2], content("running")))
	assert.False(t, c.HasChanged(keys[3], content("running")))
}

func TestEmptyFieldsEqualNil(t *testing.T) {
	c := New(DefaultConfig())
	k := Key{ChannelID: "1", ResourceID: "web"}
	c.Commit(k, Content{Title: "web", Fields: []Field{}})

	assert.False(t, c.HasChanged(k, Content{Title: "web"}))
}

func TestForget(t *testing.T) {
	c := New(DefaultConfig())
	c.Commit(Key{ChannelID: "1", ResourceID: "web"}, content("running"))
	c.Commit(Key{ChannelID: "2", ResourceID: "web"}, content("running"))
	c.Commit(Key{ChannelID: "1", ResourceID: "db"}, content("running"))

	c.Forget("web")
	assert.Equal(t, 1, c.Statistics().Size)
}
