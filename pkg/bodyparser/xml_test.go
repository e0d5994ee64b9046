package bodyparser

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeXML_Tree(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<order id="42" xmlns:x="urn:x">
  <item sku="A1">Lemon</item>
  <item sku="B2">Lime</item>
  <x:note>  fresh  </x:note>
</order>`

	value, err := DecodeXML([]byte(body))
	require.NoError(t, err)

	root, ok := value.(*XMLElement)
	require.True(t, ok, "expected *XMLElement, got %T", value)
	assert.Equal(t, "order", root.Name)

	id, ok := root.Attr("id")
	require.True(t, ok)
	assert.Equal(t, "42", id)

	require.Len(t, root.Children, 3)
	assert.Equal(t, "Lemon", root.Children[0].Text)
	sku, _ := root.Children[1].Attr("sku")
	assert.Equal(t, "B2", sku)

	note := root.Child("note")
	require.NotNil(t, note)
	assert.Equal(t, "urn:x", note.Namespace)
	assert.Equal(t, "fresh", note.Text)
	assert.Nil(t, root.Child("missing"))
}

func TestDecodeXML_Charset(t *testing.T) {
	body := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a>caf\xe9</a>")

	value, err := DecodeXML(body)
	require.NoError(t, err)
	assert.Equal(t, "café", value.(*XMLElement).Text)
}

func TestDecodeXML_Malformed(t *testing.T) {
	tests := map[string]string{
		"unclosed":       `<a><b></a>`,
		"truncated":      `<a>`,
		"multiple roots": `<a/><b/>`,
		"text only":      `hello`,
		"empty":          ``,
		"unknown entity": `<!DOCTYPE a [<!ENTITY x "y">]><a>&x;</a>`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			value, err := DecodeXML([]byte(body))
			assert.Error(t, err)
			assert.Nil(t, value)
		})
	}
}

func TestDecodeXML_ExternalEntityIsNotResolved(t *testing.T) {
	var hits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer target.Close()

	bodies := map[string]string{
		"external entity":  fmt.Sprintf(`<?xml version="1.0"?><!DOCTYPE foo [<!ENTITY xxe SYSTEM "%s/entity">]><foo>&xxe;</foo>`, target.URL),
		"parameter entity": fmt.Sprintf(`<!DOCTYPE foo [<!ENTITY %% p PUBLIC "-//X//EN" "%s/p"> %%p;]><foo/>`, target.URL),
		"external dtd":     fmt.Sprintf(`<!DOCTYPE foo SYSTEM "%s/foo.dtd"><foo/>`, target.URL),
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			value, err := DecodeXML([]byte(body))
			assert.ErrorIs(t, err, ErrExternalEntity)
			assert.Nil(t, value)
		})
	}

	assert.Equal(t, int32(0), hits.Load())
}

func TestDecodeXML_KeywordsInInternalEntityValues(t *testing.T) {
	body := `<!DOCTYPE r [<!ENTITY a "PUBLIC"><!ENTITY b 'SYSTEM'>]><r>ok</r>`

	value, err := DecodeXML([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "ok", value.(*XMLElement).Text)
}

func TestReferencesExternalResource(t *testing.T) {
	tests := []struct {
		directive string
		expected  bool
	}{
		{`DOCTYPE foo SYSTEM "foo.dtd"`, true},
		{`DOCTYPE foo PUBLIC "-//X//EN" "foo.dtd"`, true},
		{`DOCTYPE foo [<!ENTITY xxe SYSTEM "file:///etc/passwd">]`, true},
		{`DOCTYPE foo [<!ENTITY % p PUBLIC "-//X//EN" "p.dtd"> %p;]`, true},
		{`DOCTYPE foo`, false},
		{`DOCTYPE foo [<!ENTITY x "PUBLIC">]`, false},
		{`DOCTYPE foo [<!ENTITY x "a SYSTEM b"><!ENTITY y "z">]`, false},
		{`DOCTYPE foo [<!ELEMENT foo (#PCDATA)>]`, false},
		{`ELEMENT foo SYSTEM`, false},
	}

	for _, tt := range tests {
		t.Run(tt.directive, func(t *testing.T) {
			assert.Equal(t, tt.expected, referencesExternalResource(xml.Directive(tt.directive)))
		})
	}
}

func TestDecodeXML_RestoresEntityLoader(t *testing.T) {
	previous := SetEntityLoaderEnabled(true)
	defer SetEntityLoaderEnabled(previous)

	_, err := DecodeXML([]byte(`<a/>`))
	require.NoError(t, err)
	assert.True(t, EntityLoaderEnabled())

	_, err = DecodeXML([]byte(`<a>`))
	require.Error(t, err)
	assert.True(t, EntityLoaderEnabled())

	SetEntityLoaderEnabled(false)
	_, err = DecodeXML([]byte(`<a/>`))
	require.NoError(t, err)
	assert.False(t, EntityLoaderEnabled())
}

func TestDisableEntityLoader_Scoped(t *testing.T) {
	previous := SetEntityLoaderEnabled(true)
	defer SetEntityLoaderEnabled(previous)

	restore := disableEntityLoader()
	assert.False(t, EntityLoaderEnabled())

	nested := disableEntityLoader()
	restore()
	restore()
	assert.False(t, EntityLoaderEnabled(), "still held by the nested scope")

	nested()
	assert.True(t, EntityLoaderEnabled())
}

func TestDisableEntityLoader_RestoredOnPanic(t *testing.T) {
	previous := SetEntityLoaderEnabled(true)
	defer SetEntityLoaderEnabled(previous)

	assert.Panics(t, func() {
		restore := disableEntityLoader()
		defer restore()
		panic("parser blew up")
	})

	assert.True(t, EntityLoaderEnabled())
}

func TestDecodeXML_Concurrent(t *testing.T) {
	previous := SetEntityLoaderEnabled(true)
	defer SetEntityLoaderEnabled(previous)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`<n>%d</n>`, i)
			if i%2 == 0 {
				body = `<broken>`
			}
			_, _ = DecodeXML([]byte(body))
		}(i)
	}
	wg.Wait()

	assert.True(t, EntityLoaderEnabled())
}
