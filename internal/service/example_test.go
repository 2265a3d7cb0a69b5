package service_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/linkshrt/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkshrt/internal/models"
	"github.com/patric-chuzhbe/linkshrt/internal/service"
)

func ExampleService_Shorten() {
	ctx := context.Background()
	s := service.New(memorystorage.New(), "http://localhost:5000")

	short, err := s.Shorten(ctx, "https://go.dev/doc/", "godoc")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(s.ShortURL(short))

	_, err = s.Shorten(ctx, "https://go.dev/blog/", "godoc")
	fmt.Println(errors.Is(err, models.ErrConflict))

	// Output:
	// http://localhost:5000/godoc
	// true
}

func ExampleService_Resolve() {
	ctx := context.Background()
	s := service.New(memorystorage.New(), "http://localhost:5000")

	if _, err := s.Shorten(ctx, "https://go.dev/", "go"); err != nil {
		fmt.Println(err)
		return
	}

	full, _ := s.Resolve(ctx, "go")
	fmt.Println(full)

	_, err := s.Resolve(ctx, "nope")
	fmt.Println(errors.Is(err, models.ErrNotFound))

	// Output:
	// https://go.dev/
	// true
}
