package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, logrus.WarnLevel, ParseLevel(" warn "))
	require.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	require.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestNewLoggerWithLevel(t *testing.T) {
	l := NewLoggerWithLevel("debug")
	require.Equal(t, logrus.DebugLevel, l.GetLevel())
	require.NotNil(t, l.WithField("k", "v"))
}
