package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderColumns(t *testing.T) {
	require.Equal(t, []string{"id", "name"}, headerColumns("id,name\n1,alice\n"))
	require.Equal(t, []string{"id", "name"}, headerColumns("\uFEFFid,name\r\n1,alice\r\n"))
	require.Equal(t, []string{"a b", "c"}, headerColumns(`"a b", c`+"\n"))
	require.Nil(t, headerColumns("   \n"))
}
