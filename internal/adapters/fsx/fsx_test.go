package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWriteFileAtomic(t *testing.T) {
	Convey("Given a target path in a new directory", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "2024.json")

		Convey("When writing twice", func() {
			So(WriteFileAtomic(path, []byte("first")), ShouldBeNil)
			So(WriteFileAtomic(path, []byte("second")), ShouldBeNil)

			Convey("Then the file holds the latest content and no temp files remain", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "second")
				entries, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When the rename fails", func() {
			So(WriteFileAtomic(path, []byte("original")), ShouldBeNil)
			renameFunc = func(string, string) error { return errors.New("disk gone") }
			defer func() { renameFunc = os.Rename }()

			err := WriteFileAtomic(path, []byte("replacement"))

			Convey("Then the previous content survives", func() {
				So(err, ShouldNotBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, "original")
				entries, _ := os.ReadDir(filepath.Dir(path))
				So(entries, ShouldHaveLength, 1)
			})
		})
	})
}

func TestWriteJSON(t *testing.T) {
	Convey("Given a value with HTML characters", t, func() {
		path := filepath.Join(t.TempDir(), "runners.json")
		err := WriteJSON(path, map[string]string{"club": "Bush & District AC"})

		Convey("Then it is written indented and unescaped", func() {
			So(err, ShouldBeNil)
			data, _ := os.ReadFile(path)
			So(string(data), ShouldEqual, "{\n  \"club\": \"Bush & District AC\"\n}\n")
		})
	})
}
