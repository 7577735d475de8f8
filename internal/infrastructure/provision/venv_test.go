package provision_test

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/plugtest/plugtest/internal/core/domain"
	"github.com/plugtest/plugtest/internal/core/ports"
	"github.com/plugtest/plugtest/internal/infrastructure/provision"
)

// recordingRunner captures every command and answers with scripted exit
// codes keyed by a substring of the rendered command line.
type recordingRunner struct {
	commands []ports.Command
	exits    map[string]int
	errs     map[string]error
}

func (r *recordingRunner) Run(_ context.Context, cmd ports.Command) (int, error) {
	r.commands = append(r.commands, cmd)
	line := render(cmd)
	for fragment, err := range r.errs {
		if strings.Contains(line, fragment) {
			return -1, err
		}
	}
	for fragment, code := range r.exits {
		if strings.Contains(line, fragment) {
			return code, nil
		}
	}
	return 0, nil
}

func render(cmd ports.Command) string {
	return cmd.Name + " " + strings.Join(cmd.Args, " ")
}

func (r *recordingRunner) lines() []string {
	var lines []string
	for _, cmd := range r.commands {
		lines = append(lines, render(cmd))
	}
	return lines
}

var _ = Describe("VenvProvisioner", func() {
	var (
		runner *recordingRunner
		logger *log.Logger
		envDir string
	)

	BeforeEach(func() {
		runner = &recordingRunner{exits: map[string]int{}, errs: map[string]error{}}
		logger = log.New(io.Discard, "", 0)
		envDir = GinkgoT().TempDir()
	})

	newProvisioner := func() *provision.VenvProvisioner {
		return provision.NewVenvProvisioner(runner, "python3", logger)
	}

	pipPlugin := func(withDevReqs bool) domain.Plugin {
		manifests := map[string]string{domain.ManifestRequirements: "/repo/alpha/requirements.txt"}
		if withDevReqs {
			manifests[domain.ManifestDevRequirements] = "/repo/alpha/requirements-dev.txt"
		}
		return domain.Plugin{
			Name:       "alpha",
			Path:       "/repo/alpha",
			Convention: domain.ConventionPip,
			Manifests:  manifests,
		}
	}

	poetryPlugin := domain.Plugin{
		Name:       "beta",
		Path:       "/repo/beta",
		Convention: domain.ConventionPoetry,
		Manifests:  map[string]string{domain.ManifestPyproject: "/repo/beta/pyproject.toml"},
	}

	When("provisioning a pip plugin", func() {
		It("creates the virtualenv and installs in the required order", func() {
			proceed, err := newProvisioner().Provision(context.Background(), pipPlugin(true), envDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(proceed).To(BeTrue())

			pip := filepath.Join(envDir, "bin", "pip")
			Expect(runner.lines()).To(Equal([]string{
				"python3 -m venv " + envDir,
				pip + " install pytest pytest-xdist pytest-timeout pytest-rerunfailures",
				pip + " install -U -r /repo/alpha/requirements.txt",
				pip + " install -U -r /repo/alpha/requirements-dev.txt",
				pip + " install -U mock==4.0.3 requests-mock==1.9.3 freezegun==1.2.2",
			}))
		})

		It("skips the dev requirements step when the manifest is absent", func() {
			proceed, err := newProvisioner().Provision(context.Background(), pipPlugin(false), envDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(proceed).To(BeTrue())

			Expect(runner.lines()).NotTo(ContainElement(ContainSubstring("requirements-dev")))
		})

		It("fails the whole run when an install step exits non-zero", func() {
			runner.exits["-U -r /repo/alpha/requirements.txt"] = 1

			proceed, err := newProvisioner().Provision(context.Background(), pipPlugin(false), envDir)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("alpha"))
			Expect(proceed).To(BeFalse())

			// Pinned helpers must never be attempted after a failure.
			Expect(runner.lines()).NotTo(ContainElement(ContainSubstring("mock==")))
		})
	})

	When("provisioning a poetry plugin", func() {
		It("installs poetry, binds the interpreter, then installs dependencies", func() {
			proceed, err := newProvisioner().Provision(context.Background(), poetryPlugin, envDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(proceed).To(BeTrue())

			pip := filepath.Join(envDir, "bin", "pip")
			poetry := filepath.Join(envDir, "bin", "poetry")
			Expect(runner.lines()).To(Equal([]string{
				"python3 -m venv " + envDir,
				pip + " install poetry",
				poetry + " env use " + filepath.Join(envDir, "bin", "python"),
				poetry + " install",
			}))
		})

		It("runs the binding and install steps in the plugin directory", func() {
			_, err := newProvisioner().Provision(context.Background(), poetryPlugin, envDir)
			Expect(err).NotTo(HaveOccurred())

			for _, cmd := range runner.commands {
				if strings.Contains(cmd.Name, "poetry") {
					Expect(cmd.Dir).To(Equal("/repo/beta"))
				}
			}
		})

		It("treats an interpreter binding failure as a skip, not a failure", func() {
			runner.exits["env use"] = 1

			proceed, err := newProvisioner().Provision(context.Background(), poetryPlugin, envDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(proceed).To(BeFalse())

			Expect(runner.lines()).NotTo(ContainElement(ContainSubstring("poetry install")))
		})

		It("fails the whole run when poetry install exits non-zero", func() {
			runner.exits["poetry install"] = 2

			proceed, err := newProvisioner().Provision(context.Background(), poetryPlugin, envDir)
			Expect(err).To(HaveOccurred())
			Expect(proceed).To(BeFalse())
		})
	})

	When("the virtualenv cannot be created", func() {
		It("aborts before any install step", func() {
			runner.exits["-m venv"] = 1

			proceed, err := newProvisioner().Provision(context.Background(), pipPlugin(false), envDir)
			Expect(err).To(HaveOccurred())
			Expect(proceed).To(BeFalse())
			Expect(runner.commands).To(HaveLen(1))
		})
	})
})
