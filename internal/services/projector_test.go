package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembleStory(t *testing.T) {
	text := "A {1} walked into a {2}. The {1} left."
	winners := map[int]string{1: "cat", 2: "library"}

	assembled := AssembleStory(text, winners)

	assert.Equal(t, "A cat walked into a library. The cat left.", assembled)
}

func TestAssembleStoryLeavesUnknownMarkers(t *testing.T) {
	assembled := AssembleStory("A {1} and a {2}.", map[int]string{1: "dog"})
	assert.Equal(t, "A dog and a {2}.", assembled)
}

func TestCheckAssemblyClean(t *testing.T) {
	anomalies := CheckAssembly("A cat and a dog.", []string{"cat", "dog"})
	assert.Empty(t, anomalies)
}

func TestCheckAssemblyReportsLeftoverMarker(t *testing.T) {
	anomalies := CheckAssembly("A cat and a {2}.", []string{"cat"})

	assert.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0], "{2}")
}

func TestCheckAssemblyReportsMissingWinner(t *testing.T) {
	anomalies := CheckAssembly("A cat and a dog.", []string{"cat", "ferret"})

	assert.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0], "ferret")
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("One. Two! Three? And a trailing fragment")

	assert.Equal(t, []string{"One.", "Two!", "Three?", "And a trailing fragment"}, sentences)
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Empty(t, SplitSentences(""))
	assert.Empty(t, SplitSentences("   "))
}
