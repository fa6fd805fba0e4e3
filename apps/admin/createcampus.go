package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core/campus"
)

func (cli *commandLine) createCampus(name, slug, email string) error {
	svc := campus.NewService(cli.cmpRepo)
	cmp, err := svc.Create(context.Background(), campus.NewCampus{
		Name:         name,
		Slug:         slug,
		ContactEmail: email,
	})
	if err != nil {
		return err
	}
	fmt.Printf("campus %q created (id=%s slug=%s)\n", cmp.Name, cmp.ID, cmp.Slug)
	return nil
}
