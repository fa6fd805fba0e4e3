package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrRepo user.Repository
	cmpRepo campus.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addsuper -username USERNAME -email EMAIL           - add a super admin")
	fmt.Println("  resetpassword -username USERNAME|EMAIL             - reset user's password")
	fmt.Println("  createcampus -name NAME -email CONTACT_EMAIL       - create a campus")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSuperCmd := flag.NewFlagSet("addsuper", flag.ExitOnError)
	addSuperUname := addSuperCmd.String("username", "", "The super admin's username. The password will be prompted next.")
	addSuperEmail := addSuperCmd.String("email", "", "The super admin's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	createCampusCmd := flag.NewFlagSet("createcampus", flag.ExitOnError)
	createCampusName := createCampusCmd.String("name", "", "The campus name.")
	createCampusEmail := createCampusCmd.String("email", "", "The campus contact email.")
	createCampusSlug := createCampusCmd.String("slug", "", "Optional URL slug; derived from the name when empty.")

	switch args[1] {
	case "addsuper":
		if err := addSuperCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSuperUname == "" || *addSuperEmail == "" {
			addSuperCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addSuperCmd)
		if err != nil {
			return err
		}
		return cli.addSuper(*addSuperUname, *addSuperEmail, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "createcampus":
		if err := createCampusCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createCampusName == "" || *createCampusEmail == "" {
			createCampusCmd.Usage()
			return errHelp
		}
		return cli.createCampus(*createCampusName, *createCampusSlug, *createCampusEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
