package api_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioshelf/internal/api"
	"audioshelf/internal/events"
	"audioshelf/internal/library"
	"audioshelf/internal/logging"
	"audioshelf/internal/testsupport"
)

func TestSeriesServiceGetUpdateList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := testsupport.NewLibrary(t, st, "Fiction", t.TempDir())
	series := testsupport.NewSeries(t, st, lib.ID, "The Expanse")
	testsupport.NewBook(t, st, lib, "Caliban's War", testsupport.InSeries(series, "2"))
	testsupport.NewBook(t, st, lib, "Leviathan Wakes", testsupport.InSeries(series, "1"))
	recorder := &events.Recorder{}
	svc := api.NewSeriesService(st, recorder, logging.NewNop())
	ctx := context.Background()

	detail, err := svc.Get(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expanse, The", detail.NameIgnorePrefix)
	require.Len(t, detail.Books, 2)
	assert.Equal(t, "Leviathan Wakes", detail.Books[0].Title)

	empty := ""
	_, err = svc.Update(ctx, series.ID, library.SeriesPatch{Name: &empty})
	assert.ErrorIs(t, err, api.ErrInvalid)

	res, err := svc.Update(ctx, series.ID, library.SeriesPatch{Description: library.Some("Space opera")})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, []events.Event{events.SeriesUpdated}, recorder.Names())

	res, err = svc.Update(ctx, series.ID, library.SeriesPatch{Description: library.Some("Space opera")})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Len(t, recorder.Names(), 1)

	list, err := svc.List(ctx, lib.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].NumBooks)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestFolderServiceLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	lib := testsupport.NewLibrary(t, st, "Fiction", t.TempDir())
	recorder := &events.Recorder{}
	svc := api.NewFolderService(st, recorder, logging.NewNop())
	ctx := context.Background()

	_, err := svc.Add(ctx, lib.ID, "relative/path")
	assert.ErrorIs(t, err, api.ErrInvalid)
	_, err = svc.Add(ctx, lib.ID, "  ")
	assert.ErrorIs(t, err, api.ErrInvalid)
	_, err = svc.Add(ctx, "missing", "/books")
	assert.ErrorIs(t, err, api.ErrNotFound)

	dir := filepath.Join(t.TempDir(), "audiobooks")
	folder, err := svc.Add(ctx, lib.ID, dir+"/")
	require.NoError(t, err)
	assert.Equal(t, dir, folder.FullPath)
	assert.Equal(t, []events.Event{events.LibraryUpdated}, recorder.Names())

	_, err = svc.Add(ctx, lib.ID, dir)
	assert.ErrorIs(t, err, api.ErrConflict)

	folders, err := svc.List(ctx, lib.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	require.NoError(t, svc.Remove(ctx, folder.ID))
	assert.ErrorIs(t, svc.Remove(ctx, folder.ID), api.ErrNotFound)
	folders, err = svc.List(ctx, lib.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestItemServiceReplaceAudioFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	root := t.TempDir()
	lib := testsupport.NewLibrary(t, st, "Fiction", root)
	book := testsupport.NewBook(t, st, lib, "Dune", testsupport.WithTracks(
		testsupport.AudioTrack(1, "100", filepath.Join(root, "Dune", "01.mp3"), 600),
		testsupport.AudioTrack(2, "101", filepath.Join(root, "Dune", "02.mp3"), 300),
	))
	recorder := &events.Recorder{}
	svc := api.NewItemService(st, recorder, logging.NewNop())
	ctx := context.Background()

	_, err := svc.ReplaceAudioFiles(ctx, book.ID, []library.AudioFile{{Index: 1}})
	assert.ErrorIs(t, err, api.ErrInvalid)

	scanned := []library.AudioFile{
		testsupport.AudioTrack(1, "100", filepath.Join(root, "Dune", "01.mp3"), 610),
		testsupport.AudioTrack(2, "102", filepath.Join(root, "Dune", "02.m4b"), 200),
	}
	res, err := svc.ReplaceAudioFiles(ctx, book.ID, scanned)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	require.Len(t, res.Item.AudioFiles, 3)
	assert.True(t, res.Item.AudioFiles[1].Invalid, "track missing from scan is invalid")
	assert.InDelta(t, 810, res.Item.Duration, 0.001)
	assert.Equal(t, []events.Event{events.ItemUpdated}, recorder.Names())

	stored, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ValidTracks(), 2)

	res, err = svc.ReplaceAudioFiles(ctx, book.ID, scanned)
	require.NoError(t, err)
	assert.False(t, res.Updated)
}

func TestItemServiceCheckFilesMarksMissingTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	root := t.TempDir()
	lib := testsupport.NewLibrary(t, st, "Fiction", root)
	present := filepath.Join(root, "Dune", "01.mp3")
	testsupport.WriteFile(t, present, 128)
	book := testsupport.NewBook(t, st, lib, "Dune", testsupport.WithTracks(
		testsupport.AudioTrack(1, "100", present, 600),
		testsupport.AudioTrack(2, "101", filepath.Join(root, "Dune", "02.mp3"), 300),
	))
	recorder := &events.Recorder{}
	svc := api.NewItemService(st, recorder, logging.NewNop())
	ctx := context.Background()

	changed, err := svc.CheckFiles(ctx, lib.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, []events.Event{events.ItemsUpdated}, recorder.Names())

	stored, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, stored.AudioFiles[0].Invalid)
	assert.True(t, stored.AudioFiles[1].Invalid)
	require.NotNil(t, stored.AudioFiles[1].Error)
	assert.InDelta(t, 600, stored.Duration, 0.001)

	changed, err = svc.CheckFiles(ctx, lib.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, recorder.Names(), 1)
}
