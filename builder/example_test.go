package builder_test

import (
	"context"
	"fmt"
	"log"

	"github.com/feliixx/mockbuilder/builder"
	"github.com/feliixx/mockbuilder/mock"
	"github.com/feliixx/mockbuilder/model"
)

func Example() {

	type Author struct {
		ID   int
		Name string `mock:"required,maxlen=20"`
	}
	type Book struct {
		ID       int
		Title    string `mock:"maxlen=40"`
		AuthorID int    `db:"ref=Author"`
	}

	m := model.New()
	if _, err := model.Register[Author](m); err != nil {
		log.Fatal(err)
	}
	if _, err := model.Register[Book](m); err != nil {
		log.Fatal(err)
	}

	b := builder.New(m, builder.WithSeed(1))
	author, err := builder.Add[Author](b)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := builder.AddRelatedN[Book](author, 2); err != nil {
		log.Fatal(err)
	}
	c, err := b.Build(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, book := range mock.Set[Book](c) {
		fmt.Println(book.ID, book.AuthorID)
	}
	// Output:
	// 1 1
	// 2 1
}
