package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Username", "username"},
		{"FullName", "full_name"},
		{"HTTPCode", "http_code"},
		{"UserID", "user_id"},
		{"XMLParser", "xml_parser"},
		{"getHTTPResponse", "get_http_response"},
		{"already_snake", "already_snake"},
		{"A", "a"},
		{"AB", "ab"},
		{"ABC", "abc"},
		{"", ""},
		{"userInfo", "user_info"},
		{"PHBOrg", "phb_org"},
		{"UserIDs", "user_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := snake(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPascal(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "UserInfo"},
		{"full_name", "FullName"},
		{"user_id", "UserID"},
		{"http_code", "HTTPCode"},
		{"full-admin", "FullAdmin"},
		{"already", "Already"},
		{"a", "A"},
		{"ab", "Ab"},
		{"a_b", "AB"},
		{"xml_parser", "XMLParser"},
		{"api_url", "APIURL"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := pascal(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "userInfo"},
		{"full_name", "fullName"},
		{"user_id", "userID"},
		{"http_code", "httpCode"},
		{"full-admin", "fullAdmin"},
		{"already", "already"},
		{"a", "a"},
		{"user", "user"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := camel(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReceiver(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "u"},
		{"UserQuery", "uq"},
		{"[]User", "u"},
		{"[1]User", "u"},
		{"*User", "u"},
		{"HTTPClient", "hc"},
		{"A", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := receiver(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPlural(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "Users"},
		{"Category", "Categories"},
		{"Person", "Persons"},
		{"Child", "Childs"},
		{"Data", "DataSlice"}, // Already plural or uncountable
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := plural(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExported(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"id", "ID"},
		{"email", "Email"},
		{"createdAt", "CreatedAt"},
		{"authorId", "AuthorID"},
		{"user_name", "UserName"},
		{"URL", "URL"},
		{"avatarUrl", "AvatarURL"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, exported(tt.input))
		})
	}
}

func TestUnexported(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ID", "id"},
		{"Email", "email"},
		{"URLPath", "urlPath"},
		{"createdAt", "createdAt"},
		{"type", "_type"},
		{"range", "_range"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, unexported(tt.input))
		})
	}
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"HTTP", "Client"}, splitWords("HTTPClient"))
	assert.Equal(t, []string{"created", "At"}, splitWords("createdAt"))
	assert.Equal(t, []string{"author", "Id", "title"}, splitWords("authorId_title"))
	assert.Empty(t, splitWords(""))
}

func TestIsSeparator(t *testing.T) {
	assert.True(t, isSeparator('_'))
	assert.True(t, isSeparator('-'))
	assert.True(t, isSeparator(' '))
	assert.True(t, isSeparator('.'))
	assert.False(t, isSeparator('a'))
	assert.False(t, isSeparator('1'))
}
