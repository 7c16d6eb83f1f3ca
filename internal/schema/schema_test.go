package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{Name: "github", Username: "octo", Password: []byte("hunter2"), CreatedAt: 100, UpdatedAt: 200},
		{Name: "mail", Username: "me@example.com", Password: []byte{}, CreatedAt: 300, UpdatedAt: 300},
	}
}

func TestV2RoundTrip(t *testing.T) {
	data, err := Encode(V2, sampleRecords())
	require.NoError(t, err)

	schema, err := Peek(data)
	require.NoError(t, err)
	assert.Equal(t, V2, schema)

	records, err := Decode(V2, data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "github", records[0].Name)
	assert.Equal(t, "octo", records[0].Username)
	assert.Equal(t, []byte("hunter2"), records[0].Password)
	assert.Equal(t, int64(100), records[0].CreatedAt)
	assert.Equal(t, int64(200), records[0].UpdatedAt)
	assert.Empty(t, records[1].Password)
	assert.NotNil(t, records[1].Password)
}

func TestV2EmptyStore(t *testing.T) {
	data, err := Encode(V2, nil)
	require.NoError(t, err)

	records, err := Decode(V2, data)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestV1DecodeMapsLegacyFields(t *testing.T) {
	doc := []byte(`{"schema":1,"passwords":[{"app":"bank","user":"alice","pass":"s3cret","updated":42}]}`)

	records, err := Decode(V1, doc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{Name: "bank", Username: "alice", Password: []byte("s3cret"), CreatedAt: 42, UpdatedAt: 42}, records[0])
}

func TestV1EncodeIsDecodable(t *testing.T) {
	in := []Record{{Name: "bank", Username: "alice", Password: []byte("s3cret"), CreatedAt: 42, UpdatedAt: 42}}
	data, err := Encode(V1, in)
	require.NoError(t, err)

	out, err := Decode(V1, data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"schema":2,"entries":[`,
		"no tag":            `{"entries":[]}`,
		"no entries":        `{"schema":2}`,
		"missing name":      `{"schema":2,"entries":[{"username":"u","password":"","created_at":1,"updated_at":1}]}`,
		"missing password":  `{"schema":2,"entries":[{"name":"a","username":"u","created_at":1,"updated_at":1}]}`,
		"missing timestamp": `{"schema":2,"entries":[{"name":"a","username":"u","password":"","created_at":1}]}`,
		"garbled timestamp": `{"schema":2,"entries":[{"name":"a","username":"u","password":"","created_at":"x","updated_at":1}]}`,
		"negative time":     `{"schema":2,"entries":[{"name":"a","username":"u","password":"","created_at":-1,"updated_at":1}]}`,
		"updated first":     `{"schema":2,"entries":[{"name":"a","username":"u","password":"","created_at":5,"updated_at":1}]}`,
		"empty name":        `{"schema":2,"entries":[{"name":"","username":"u","password":"","created_at":1,"updated_at":1}]}`,
		"duplicate names": `{"schema":2,"entries":[` +
			`{"name":"a","username":"u","password":"","created_at":1,"updated_at":1},` +
			`{"name":"a","username":"v","password":"","created_at":1,"updated_at":1}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			records, err := Decode(V2, []byte(doc))
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Nil(t, records)
		})
	}
}

func TestDecodeRejectsIncompleteLegacyEntry(t *testing.T) {
	_, err := Decode(V1, []byte(`{"schema":1,"passwords":[{"app":"bank","user":"alice"}]}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeChecksTagFirst(t *testing.T) {
	legacy := []byte(`{"schema":1,"passwords":[]}`)
	_, err := Decode(V2, legacy)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Decode(7, legacy)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestEncodeValidates(t *testing.T) {
	records := sampleRecords()
	records[1].Name = records[0].Name
	_, err := Encode(V2, records)
	assert.ErrorIs(t, err, ErrMalformed)

	records = sampleRecords()
	records[0].Name = "bank\xff"
	_, err = Encode(V2, records)
	assert.ErrorIs(t, err, ErrMalformed, "invalid UTF-8 would not survive encoding/json")

	records = sampleRecords()
	records[1].Username = "bob\xfe"
	_, err = Encode(V2, records)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Encode(9, nil)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestDecodeRejectsRepeatedKeys(t *testing.T) {
	for name, doc := range map[string]string{
		"entry field": `{"schema":2,"entries":[{"name":"a","username":"u","password":"cA==","password":"cQ==","created_at":1,"updated_at":1}]}`,
		"top level":   `{"schema":2,"entries":[],"entries":[]}`,
		"legacy":      `{"schema":1,"passwords":[{"app":"a","user":"u","pass":"p","pass":"q","updated":1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			tag, err := Peek([]byte(doc))
			require.NoError(t, err)
			_, err = Decode(tag, []byte(doc))
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), "repeated key")
		})
	}
}

func TestWipe(t *testing.T) {
	records := sampleRecords()
	Wipe(records)
	assert.Equal(t, make([]byte, 7), records[0].Password)
}
