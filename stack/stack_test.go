package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-fleet-go"
	"github.com/lex00/wetwire-fleet-go/intrinsics"
	"github.com/lex00/wetwire-fleet-go/resources/ecr"
	"github.com/lex00/wetwire-fleet-go/resources/iam"
	"github.com/lex00/wetwire-fleet-go/resources/lambda"
)

func outputOf(value any) wetwire.Output {
	return wetwire.Output{Value: value}
}

func newFunctionStack(t *testing.T) (*Stack, Handle) {
	t.Helper()

	s := New("test stack")
	bucket := s.AddParameter("CodeBucket", intrinsics.Parameter{Type: "String"})
	role := s.AddResource("Role", &iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:    "Allow",
			Principal: intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
			Action:    "sts:AssumeRole",
		}),
	})
	fn := s.AddResource("Function", &lambda.Function{
		Runtime: "provided.al2023",
		Handler: "bootstrap",
		Code:    lambda.Function_Code{S3Bucket: bucket, S3Key: "handler.zip"},
		Role:    role.GetAtt(iam.AttrArn),
	})
	return s, fn
}

func TestStack_Build(t *testing.T) {
	s, fn := newFunctionStack(t)
	s.AddOutput("FunctionArn", outputOf(fn.GetAtt(lambda.AttrArn)))

	tmpl, err := s.Build()
	require.NoError(t, err)

	assert.Equal(t, "test stack", tmpl.Description)
	assert.Len(t, tmpl.Resources, 2)
	assert.Equal(t, "AWS::Lambda::Function", tmpl.Resources["Function"].Type)
	assert.Equal(t, "String", tmpl.Parameters["CodeBucket"].Type)

	code := tmpl.Resources["Function"].Properties["Code"].(map[string]any)
	assert.Equal(t, map[string]any{"Ref": "CodeBucket"}, code["S3Bucket"])
	assert.Contains(t, tmpl.Outputs, "FunctionArn")
}

func TestStack_Resources_Dependencies(t *testing.T) {
	s, _ := newFunctionStack(t)

	resources, err := s.Resources()
	require.NoError(t, err)

	fn := resources["Function"]
	assert.Equal(t, "lambda.Function", fn.Type)
	assert.Equal(t, "AWS::Lambda::Function", fn.CFType)
	assert.Equal(t, []string{"CodeBucket", "Role"}, fn.Dependencies)
	assert.Contains(t, fn.File, "stack_test.go")
	assert.NotZero(t, fn.Line)

	assert.Empty(t, resources["Role"].Dependencies)
}

func TestStack_InvalidName(t *testing.T) {
	s := New("")
	s.AddResource("firmware-repo", &ecr.Repository{})

	_, err := s.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStack_DuplicateName(t *testing.T) {
	s := New("")
	s.AddResource("Repo", &ecr.Repository{})
	s.AddResource("Repo", &ecr.Repository{})

	_, err := s.Build()
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStack_DuplicateParameterAndResource(t *testing.T) {
	s := New("")
	s.AddParameter("Repo", intrinsics.Parameter{})
	s.AddResource("Repo", &ecr.Repository{})

	_, err := s.Build()
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStack_UndefinedReference(t *testing.T) {
	s := New("")
	s.AddResource("Function", &lambda.Function{
		Role: Handle{name: "MissingRole"}.GetAtt(iam.AttrArn),
	})

	_, err := s.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndefinedReference)
	assert.Contains(t, err.Error(), "MissingRole")
}

func TestStack_UndefinedOutputReference(t *testing.T) {
	s := New("")
	s.AddOutput("Arn", outputOf(Handle{name: "Nothing"}.GetAtt("Arn")))

	_, err := s.Build()
	assert.ErrorIs(t, err, ErrUndefinedReference)
}

func TestStack_PseudoParametersAreNotDependencies(t *testing.T) {
	s := New("")
	s.AddResource("Repo", &ecr.Repository{
		RepositoryName: intrinsics.Sub{String: "${AWS::StackName}-firmware"},
	})

	resources, err := s.Resources()
	require.NoError(t, err)
	assert.Empty(t, resources["Repo"].Dependencies)
}

func TestStack_BuildIsDeterministic(t *testing.T) {
	s1, _ := newFunctionStack(t)
	s2, _ := newFunctionStack(t)

	t1, err := s1.Build()
	require.NoError(t, err)
	t2, err := s2.Build()
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
}

func TestStack_Parameters(t *testing.T) {
	s := New("")
	s.AddParameter("B", intrinsics.Parameter{})
	s.AddParameter("A", intrinsics.Parameter{})

	assert.Equal(t, []string{"A", "B"}, s.Parameters())
}
