//go:build !linux

package nvcodec

func detectWSL() bool { return false }
