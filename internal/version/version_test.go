package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesBuildMetadata(t *testing.T) {
	s := String()
	require.Contains(t, s, "limn ")
	require.Contains(t, s, Version)
	require.Contains(t, s, "commit=")
	require.Contains(t, s, "go=go")
}
