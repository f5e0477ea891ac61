package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	s := &Stack[int]{}
	assert.True(s.Empty())

	s.Push(0x1234)
	assert.False(s.Empty())
	assert.Equal(1, s.Len())
	assert.Equal(0x1234, s.Data[0])
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	s := &Stack[string]{}
	s.Push("a")
	s.Push("b")

	val, ok := s.Pop()
	assert.True(ok)
	assert.Equal("b", val)
	assert.Equal(1, s.Len())

	val, ok = s.Pop()
	assert.True(ok)
	assert.Equal("a", val)

	val, ok = s.Pop()
	assert.False(ok)
	assert.Equal("", val)
}

func TestStack_Peek(t *testing.T) {
	assert := assert.New(t)

	s := &Stack[int]{}
	_, ok := s.Peek()
	assert.False(ok)

	s.Push(1)
	s.Push(2)
	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(2, val)
	assert.Equal(2, s.Len())
}

func TestStack_Truncate(t *testing.T) {
	assert := assert.New(t)

	s := &Stack[int]{}
	for i := range 4 {
		s.Push(i)
	}

	s.Truncate(6)
	assert.Equal(4, s.Len())

	s.Truncate(1)
	assert.Equal(1, s.Len())
	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(0, val)

	s.Truncate(0)
	assert.True(s.Empty())

	s.Push(7)
	s.Reset()
	assert.True(s.Empty())
}
